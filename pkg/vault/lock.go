package vault

import (
	"fmt"

	"github.com/gofrs/flock"
)

// acquireLock takes the advisory lock when the store was opened with
// WithFileLock. It never blocks: a lock held elsewhere yields ErrVaultBusy.
func (s *Store) acquireLock() (*flock.Flock, error) {
	if !s.useLock {
		return nil, nil
	}

	lock := flock.New(s.path + LockSuffix)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, &IOError{Op: "lock", Path: lock.Path(), Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVaultBusy, lock.Path())
	}
	return lock, nil
}

func releaseLock(lock *flock.Flock) {
	if lock == nil {
		return
	}
	_ = lock.Unlock()
}
