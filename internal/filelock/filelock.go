// Package filelock provides file locking and atomic output files, so a result
// file is either fully written or left untouched even when several ygrep
// processes target it at once.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock wraps a flock file lock for coordinating access to files.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock for the given path.
// The lock file will be created at the specified path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Lock acquires an exclusive lock on the file, blocking until the lock is available.
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	return nil
}

// TryLock attempts to acquire an exclusive lock on the file without blocking.
// Returns true if the lock was acquired, false if the lock is held by another process.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// ErrFinished is returned when an AtomicFile is used after Commit or Abort.
var ErrFinished = errors.New("atomic file already committed or aborted")

// AtomicFile streams output into a temporary file next to its target and
// publishes it with a rename on Commit. Readers of the target never see a
// partial result; if the run fails the target keeps its previous content.
//
// The rename happens while holding "<target>.lock", so concurrent writers to the
// same target publish one at a time.
type AtomicFile struct {
	target string
	temp   *os.File
	done   bool
}

// CreateAtomic creates the temporary file for target, creating the parent
// directory if needed.
func CreateAtomic(target string) (*AtomicFile, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Same directory as the target, so the final rename stays on one filesystem.
	temp, err := os.CreateTemp(dir, ".ygrep-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &AtomicFile{target: target, temp: temp}, nil
}

// Write appends p to the temporary file.
func (af *AtomicFile) Write(p []byte) (int, error) {
	if af.done {
		return 0, ErrFinished
	}
	return af.temp.Write(p)
}

// Target returns the path the file is published to.
func (af *AtomicFile) Target() string {
	return af.target
}

// TempPath returns the path of the temporary file being written.
func (af *AtomicFile) TempPath() string {
	return af.temp.Name()
}

// Commit syncs the temporary file and renames it over the target.
func (af *AtomicFile) Commit() error {
	if af.done {
		return ErrFinished
	}
	af.done = true
	tempPath := af.temp.Name()

	if err := af.temp.Sync(); err != nil {
		af.discard()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := af.temp.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// CreateTemp uses 0600
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	lock := NewFileLock(af.target + ".lock")
	if err := lock.Lock(); err != nil {
		os.Remove(tempPath)
		return err
	}
	defer lock.Unlock()

	if err := os.Rename(tempPath, af.target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file to %s: %w", af.target, err)
	}
	return nil
}

// Abort removes the temporary file and leaves the target untouched. It is a
// no-op after Commit, so it can be deferred unconditionally.
func (af *AtomicFile) Abort() error {
	if af.done {
		return nil
	}
	af.done = true
	return af.discard()
}

func (af *AtomicFile) discard() error {
	af.temp.Close()
	if err := os.Remove(af.temp.Name()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file: %w", err)
	}
	return nil
}
