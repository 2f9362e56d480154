package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another process is editing the document.
var ErrLocked = errors.New("document locked")

// Lock is an exclusive flock on <document>.lock. The file holds the owner's
// PID. The kernel drops the flock when the owner dies, so a stale file never
// blocks a new editor.
type Lock struct {
	path string
	file *os.File
}

// NewLock returns the lock for the document at path.
func NewLock(path string) *Lock {
	return &Lock{path: path + ".lock"}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock and records the current PID. It fails with
// ErrLocked when another process holds it.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if pid := l.Owner(); pid > 0 {
				return fmt.Errorf("%w by pid %d", ErrLocked, pid)
			}
			return ErrLocked
		}
		return fmt.Errorf("lock document: %w", err)
	}

	if err := file.Truncate(0); err != nil {
		unlockAndClose(file)
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		unlockAndClose(file)
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		unlockAndClose(file)
		return fmt.Errorf("write pid: %w", err)
	}

	l.file = file
	return nil
}

// Owner returns the PID recorded in the lock file, or 0.
func (l *Lock) Owner() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// Held reports whether some process, this one included, holds the lock.
func (l *Lock) Held() bool {
	if l.file != nil {
		return true
	}
	file, err := os.Open(l.path)
	if err != nil {
		return false
	}
	defer func() { _ = file.Close() }()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return errors.Is(err, syscall.EWOULDBLOCK)
	}
	_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	return false
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	unlockAndClose(l.file)
	l.file = nil
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}

func unlockAndClose(file *os.File) {
	_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
	_ = file.Close()
}
