//go:build !unix

package file

import (
	"fmt"
	"os"
)

// sessionLock only keeps the lock file open on platforms without flock.
type sessionLock struct {
	file *os.File
}

func acquireLock(path string) (*sessionLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	return &sessionLock{file: file}, nil
}

func (l *sessionLock) release() error {
	return l.file.Close()
}
