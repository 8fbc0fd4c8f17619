package persistence

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/persistence/codec"
)

// TypeSummary is one type table row with the entries stored for it.
type TypeSummary struct {
	Name     string
	Entities int
	Bytes    int64
}

// Summary describes a stored category without constructing any entity.
type Summary struct {
	Category   string
	Entities   int
	Types      []TypeSummary
	IndexBytes int64
	TypesBytes int64
	BlobBytes  int64
	Manifest   *Manifest
}

// Inspect reads the type table and index of a category. Missing files give
// an empty summary.
func Inspect(root, name string, serialWidth int) (*Summary, error) {
	layout := CategoryLayout(root, name)
	sum := &Summary{Category: name}

	for path, size := range map[string]*int64{
		layout.Index: &sum.IndexBytes,
		layout.Types: &sum.TypesBytes,
		layout.Blob:  &sum.BlobBytes,
	} {
		info, err := os.Stat(path)
		if err == nil {
			*size = info.Size()
		}
	}

	manifest, err := ReadManifest(layout)
	if err != nil {
		return nil, err
	}
	sum.Manifest = manifest

	if ok, _ := fileExists(layout.Types); !ok {
		return sum, nil
	}
	names, err := readTypeTable(layout.Types)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", layout.Types)
	}
	sum.Types = make([]TypeSummary, len(names))
	for i, n := range names {
		sum.Types[i].Name = n
	}

	if ok, _ := fileExists(layout.Index); !ok {
		return sum, nil
	}
	f, err := os.Open(layout.Index)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", layout.Index)
	}
	defer f.Close()

	r := codec.NewReader(f)
	count, err := codec.ReadCount(r)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", layout.Index)
	}
	for i := 0; i < count; i++ {
		entry, err := codec.ReadIndexEntry(r, serialWidth)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s entry %d", layout.Index, i)
		}
		if entry.TypeRef < 0 || int(entry.TypeRef) >= len(sum.Types) {
			return nil, eris.Wrapf(ErrCorrupt, "%s entry %d: type ref %d outside type table", layout.Index, i, entry.TypeRef)
		}
		sum.Types[entry.TypeRef].Entities++
		sum.Types[entry.TypeRef].Bytes += int64(entry.Length)
	}
	sum.Entities = count
	return sum, nil
}
