package persistence

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	extIndex    = ".idx"
	extTypes    = ".tdb"
	extBlob     = ".bin"
	extManifest = ".manifest.yaml"
)

// Layout names the files of one category.
type Layout struct {
	Dir      string
	Index    string
	Types    string
	Blob     string
	Manifest string
}

// LayoutFor returns the layout of category name inside dir.
func LayoutFor(dir, name string) Layout {
	return Layout{
		Dir:      dir,
		Index:    filepath.Join(dir, name+extIndex),
		Types:    filepath.Join(dir, name+extTypes),
		Blob:     filepath.Join(dir, name+extBlob),
		Manifest: filepath.Join(dir, name+extManifest),
	}
}

// CategoryLayout is LayoutFor(root/name, name).
func CategoryLayout(root, name string) Layout {
	return LayoutFor(filepath.Join(root, name), name)
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
