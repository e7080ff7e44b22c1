// Package lock guards a download directory against two zedsetup runs
// writing and installing the same wheel at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// FileName is the lock file created in the guarded directory.
	FileName = ".zedsetup.lock"
	// StaleThreshold is the age after which a leftover lock is reclaimed.
	StaleThreshold = 45 * time.Minute
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another zedsetup run is using this directory")

// Lock is a held directory lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the lock in dir. The directory must already exist.
// Creation uses O_CREATE|O_EXCL so two processes cannot both succeed.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("acquire lock cancelled: %w", err)
	}

	path := filepath.Join(dir, FileName)

	file, err := create(path)
	if errors.Is(err, os.ErrExist) {
		if stale, _ := isStale(path); !stale {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		os.Remove(path)
		file, err = create(path)
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	data := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(data); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	return &Lock{path: path, file: file}, nil
}

func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
}

// Release removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path == "" {
		return nil
	}

	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

// Path returns the lock file path, or "" once released.
func (l *Lock) Path() string {
	return l.path
}

func isStale(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return time.Since(info.ModTime()) > StaleThreshold, nil
}
