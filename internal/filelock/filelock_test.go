package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestNewFileLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	lock := NewFileLock(lockPath)
	if lock == nil {
		t.Fatal("NewFileLock should not return nil")
	}
	if lock.path != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, lock.path)
	}
}

func TestLockUnlock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "test.lock"))

	if err := lock.Lock(); err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Failed to release lock: %v", err)
	}
}

func TestTryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	lock1 := NewFileLock(lockPath)
	lock2 := NewFileLock(lockPath)

	acquired, err := lock1.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Fatal("First TryLock should succeed")
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if acquired {
		t.Error("Second TryLock should fail when lock is held")
	}

	if err := lock1.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	acquired, err = lock2.TryLock()
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	if !acquired {
		t.Error("TryLock should succeed after unlock")
	}
	lock2.Unlock()
}

func TestAtomicFileCommit(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "results.txt")

	af, err := CreateAtomic(target)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	if af.Target() != target {
		t.Errorf("Target() = %q, want %q", af.Target(), target)
	}
	if filepath.Dir(af.TempPath()) != tmpDir {
		t.Errorf("temp file %q should live next to the target", af.TempPath())
	}

	fmt.Fprint(af, "a.txt\n")
	fmt.Fprint(af, "2:bar\n")

	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("target must not exist before Commit, stat err = %v", err)
	}

	if err := af.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if string(data) != "a.txt\n2:bar\n" {
		t.Errorf("target content = %q", string(data))
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Failed to stat target: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected permissions 0644, got %v", info.Mode().Perm())
	}

	if _, err := os.Stat(af.TempPath()); !os.IsNotExist(err) {
		t.Errorf("temp file should be gone after Commit")
	}
}

func TestAtomicFileAbortKeepsTarget(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "results.txt")
	if err := os.WriteFile(target, []byte("previous run\n"), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	af, err := CreateAtomic(target)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	fmt.Fprint(af, "partial")

	if err := af.Abort(); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "previous run\n" {
		t.Errorf("target changed after Abort: %q", string(data))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target to remain, found %d entries", len(entries))
	}
}

func TestAtomicFileFinished(t *testing.T) {
	af, err := CreateAtomic(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	if err := af.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := af.Abort(); err != nil {
		t.Errorf("Abort after Commit should be a no-op, got %v", err)
	}
	if _, err := af.Write([]byte("late")); !errors.Is(err, ErrFinished) {
		t.Errorf("Write after Commit = %v, want ErrFinished", err)
	}
	if err := af.Commit(); !errors.Is(err, ErrFinished) {
		t.Errorf("second Commit = %v, want ErrFinished", err)
	}
}

func TestAtomicFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "deeper", "out.txt")

	af, err := CreateAtomic(target)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	fmt.Fprint(af, "ok")
	if err := af.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil || string(data) != "ok" {
		t.Errorf("ReadFile = %q, %v", string(data), err)
	}
}

func TestAtomicFileNoTempLeftBehind(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "out.txt")

	af, err := CreateAtomic(target)
	if err != nil {
		t.Fatalf("CreateAtomic failed: %v", err)
	}
	fmt.Fprint(af, "content")
	if err := af.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".ygrep-tmp-") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestConcurrentAtomicCommits(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.txt")

	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()

			af, err := CreateAtomic(target)
			if err != nil {
				t.Errorf("CreateAtomic failed for goroutine %d: %v", id, err)
				return
			}
			defer af.Abort()

			fmt.Fprintf(af, "writer-%02d\n", id)
			if err := af.Commit(); err != nil {
				t.Errorf("Commit failed for goroutine %d: %v", id, err)
			}
		}(i)
	}

	wg.Wait()

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}

	// Exactly one complete writer wins.
	if len(content) != len("writer-00\n") || !strings.HasPrefix(string(content), "writer-") {
		t.Errorf("unexpected content %q", string(content))
	}
}
