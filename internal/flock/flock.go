// Package flock guards the output tuning spec against a second boo-tuner
// run chaining into the same file.
package flock

import "errors"

// ErrLocked means another process holds the lock.
var ErrLocked = errors.New("flock: already locked by another process")

// Lock is a held advisory lock. Release is safe to call more than once.
type Lock struct {
	path    string
	release func() error
}

func (l *Lock) Path() string { return l.path }

func (l *Lock) Release() error {
	if l == nil || l.release == nil {
		return nil
	}
	release := l.release
	l.release = nil
	return release()
}

// PathFor is the lock file used for a spec path.
func PathFor(specPath string) string {
	return specPath + ".lock"
}
