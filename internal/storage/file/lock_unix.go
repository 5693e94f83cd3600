//go:build unix

package file

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"gooze.dev/pkg/orbit/internal/storage"
)

// sessionLock is an advisory flock. The kernel drops it when the holding
// process dies, so an interrupted executor never leaves a stale lock.
type sessionLock struct {
	file *os.File
}

func acquireLock(path string) (*sessionLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, storage.ErrSessionLocked
		}

		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	return &sessionLock{file: file}, nil
}

func (l *sessionLock) release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("failed to unlock session: %w", err)
	}

	return l.file.Close()
}
