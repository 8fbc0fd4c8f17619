package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/fslock"
	"github.com/rotisserie/eris"
)

// lockCategory takes the inter-process lock of one category. The lock file
// sits next to the category directory so atomic swaps never touch it.
func lockCategory(root, name string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, eris.Wrapf(err, "create persistence root %s", root)
	}

	lock := fslock.New(filepath.Join(root, "."+name+".lock"))
	var err error
	if timeout > 0 {
		err = lock.LockWithTimeout(timeout)
	} else {
		err = lock.TryLock()
	}
	switch {
	case err == nil:
		return func() { _ = lock.Unlock() }, nil
	case errors.Is(err, fslock.ErrLocked), errors.Is(err, fslock.ErrTimeout):
		return nil, eris.Wrapf(ErrCategoryLocked, "category %s", name)
	default:
		return nil, eris.Wrapf(err, "lock category %s", name)
	}
}
