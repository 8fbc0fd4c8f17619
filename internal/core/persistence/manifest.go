package persistence

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Manifest summarizes one save of a category.
type Manifest struct {
	Category string                `yaml:"category"`
	SaveID   string                `yaml:"save_id"`
	SavedAt  time.Time             `yaml:"saved_at"`
	Entities int                   `yaml:"entities"`
	Types    map[string]int        `yaml:"types"`
	Files    map[string]FileDigest `yaml:"files"`
}

// FileDigest is the size and xxhash64 of one file of the triple.
type FileDigest struct {
	Size   int64  `yaml:"size"`
	XXHash string `yaml:"xxhash"`
}

// hashedFile counts and hashes everything written to the file.
type hashedFile struct {
	f    *os.File
	sum  hash.Hash64
	size int64
}

func createHashed(path string) (*hashedFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &hashedFile{f: f, sum: xxhash.New()}, nil
}

func (h *hashedFile) Write(p []byte) (int, error) {
	n, err := h.f.Write(p)
	h.sum.Write(p[:n])
	h.size += int64(n)
	return n, err
}

func (h *hashedFile) digest() FileDigest {
	return FileDigest{Size: h.size, XXHash: fmt.Sprintf("%016x", h.sum.Sum64())}
}

// close syncs before closing so a committed save survives a crash.
func (h *hashedFile) close() error {
	if err := h.f.Sync(); err != nil {
		_ = h.f.Close()
		return err
	}
	return h.f.Close()
}

func digestFile(path string) (FileDigest, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileDigest{}, err
	}
	defer f.Close()

	sum := xxhash.New()
	n, err := io.Copy(sum, f)
	if err != nil {
		return FileDigest{}, err
	}
	return FileDigest{Size: n, XXHash: fmt.Sprintf("%016x", sum.Sum64())}, nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "encode manifest")
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest loads the manifest of the category stored in dir. A missing
// manifest yields (nil, nil).
func ReadManifest(layout Layout) (*Manifest, error) {
	data, err := os.ReadFile(layout.Manifest)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", layout.Manifest)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "decode %s", layout.Manifest)
	}
	return &m, nil
}

// VerifyLayout recomputes the digests recorded in the manifest. It returns
// (nil, nil) when the category has no manifest.
func VerifyLayout(layout Layout) (*Manifest, error) {
	m, err := ReadManifest(layout)
	if err != nil || m == nil {
		return m, err
	}

	for _, path := range []string{layout.Index, layout.Types, layout.Blob} {
		name := filepath.Base(path)
		want, ok := m.Files[name]
		if !ok {
			return m, eris.Wrapf(ErrChecksumMismatch, "%s missing from manifest", name)
		}
		got, err := digestFile(path)
		if err != nil {
			return m, eris.Wrapf(err, "digest %s", name)
		}
		if got != want {
			return m, eris.Wrapf(ErrChecksumMismatch, "%s: have %s/%d, manifest %s/%d",
				name, got.XXHash, got.Size, want.XXHash, want.Size)
		}
	}
	return m, nil
}
