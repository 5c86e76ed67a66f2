// Package lockfile guards against two manager instances mutating the same
// persisted state. The lock is an exclusive advisory flock on a well-known
// runtime path; losing the race is a fatal startup error, not retried.
package lockfile

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// Lock is a held single-instance lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Acquire takes the exclusive lock at path, writing our pid into the file
// for diagnostics. It fails immediately when another instance holds it.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("another instance is already running (lock held on %s)", path)
	}

	// Best effort: the pid is informational only, the flock is the guard.
	_ = os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)

	return &Lock{fl: fl, path: path}, nil
}

// Release drops the lock and removes the file.
func (l *Lock) Release() {
	if l == nil || l.fl == nil {
		return
	}
	_ = l.fl.Unlock()
	_ = os.Remove(l.path)
	l.fl = nil
}
