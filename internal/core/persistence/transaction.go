package persistence

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// saveTxn is the destination of one save. In atomic mode the files are
// written to a hidden sibling directory and swapped in on commit with two
// renames. A crash between them leaves no category directory; recoverSwap
// finishes or undoes such a swap before the next load or save.
type saveTxn struct {
	final  string
	dir    string
	atomic bool

	retiredFrom, retiredTo string
}

func tempDir(root, name string) string {
	return filepath.Join(root, "."+name+"."+uuid.NewString()+".tmp")
}

func retiredDir(final string) string {
	return final + "." + uuid.NewString() + ".old"
}

func beginSave(root, name string, atomic bool) (*saveTxn, error) {
	final := filepath.Join(root, name)
	t := &saveTxn{final: final, dir: final, atomic: atomic}
	if atomic {
		t.dir = tempDir(root, name)
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create %s", t.dir)
	}
	return t, nil
}

// retireLegacy renames a legacy document so the binary files written by this
// save win the next load's dispatch. The renamed file travels with the swap.
func (t *saveTxn) retireLegacy(fileName string) error {
	if fileName == "" {
		return nil
	}
	src := filepath.Join(t.final, fileName)
	ok, err := fileExists(src)
	if err != nil || !ok {
		return err
	}
	dst := filepath.Join(t.dir, fileName+".imported")
	if err := os.Rename(src, dst); err != nil {
		return err
	}
	t.retiredFrom, t.retiredTo = src, dst
	return nil
}

func (t *saveTxn) commit() error {
	if !t.atomic {
		return nil
	}

	old := retiredDir(t.final)
	hadOld := true
	if err := os.Rename(t.final, old); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return eris.Wrapf(err, "move aside %s", t.final)
		}
		hadOld = false
	}

	if err := os.Rename(t.dir, t.final); err != nil {
		if hadOld {
			_ = os.Rename(old, t.final)
		}
		return eris.Wrapf(err, "swap in %s", t.final)
	}

	if hadOld {
		return os.RemoveAll(old)
	}
	return nil
}

func (t *saveTxn) rollback() {
	if t.retiredTo != "" {
		_ = os.Rename(t.retiredTo, t.retiredFrom)
	}
	if t.atomic {
		_ = os.RemoveAll(t.dir)
	}
}

// swapRecovery describes what recoverSwap did. Action is empty when no
// leftovers were found.
type swapRecovery struct {
	Action string
	From   string
}

// recoverSwap cleans up after an atomic save that did not finish. With the
// category directory present, leftovers are stale and removed. Without it, a
// complete temp directory (one holding a manifest) is renamed in; failing
// that, the most recent retired directory is restored.
func recoverSwap(root, name string) (swapRecovery, error) {
	final := filepath.Join(root, name)
	temps, err := filepath.Glob(filepath.Join(root, "."+name+".*.tmp"))
	if err != nil {
		return swapRecovery{}, err
	}
	olds, err := filepath.Glob(final + ".*.old")
	if err != nil {
		return swapRecovery{}, err
	}
	if len(temps) == 0 && len(olds) == 0 {
		return swapRecovery{}, nil
	}

	var rec swapRecovery
	present, err := dirExists(final)
	if err != nil {
		return rec, err
	}
	if !present {
		candidate, err := newestDir(temps, func(dir string) (bool, error) {
			return fileExists(LayoutFor(dir, name).Manifest)
		})
		if err != nil {
			return rec, err
		}
		rec.Action = "completed"
		if candidate == "" {
			if candidate, err = newestDir(olds, dirExists); err != nil {
				return rec, err
			}
			rec.Action = "rolled back"
		}
		if candidate == "" {
			rec.Action = ""
		} else {
			if err := os.Rename(candidate, final); err != nil {
				return rec, eris.Wrapf(err, "restore %s from %s", final, candidate)
			}
			rec.From = candidate
		}
	}

	for _, dir := range append(temps, olds...) {
		if dir == rec.From {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return rec, eris.Wrapf(err, "remove %s", dir)
		}
	}
	if rec.Action == "" {
		rec.Action = "cleaned"
	}
	return rec, nil
}

// newestDir returns the most recently modified dir accepted by ok, or "".
func newestDir(dirs []string, ok func(string) (bool, error)) (string, error) {
	var best string
	var bestTime time.Time
	for _, dir := range dirs {
		accept, err := ok(dir)
		if err != nil {
			return "", err
		}
		if !accept {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil {
			return "", err
		}
		if best == "" || info.ModTime().After(bestTime) {
			best, bestTime = dir, info.ModTime()
		}
	}
	return best, nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}
