// Package pkg is a package that provides utilities for orbit.
package pkg

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"sync"
)

// frameHeaderSize is the length prefix plus the CRC32 of the payload.
const frameHeaderSize = 8

var (
	// ErrJournalClosed is returned by operations on a closed journal.
	ErrJournalClosed = errors.New("journal is closed")

	errEmptyFrame     = errors.New("empty frame")
	errFrameTooLarge  = errors.New("frame exceeds remaining journal size")
	errChecksumFailed = errors.New("checksum mismatch")
)

// Journal is an append-only, crash tolerant log of items of type T.
// Every Append is fsynced before it returns.
type Journal[T any] interface {
	Append(item T) error
	Range(f func(index uint64, item T) error) error
	Truncate() error
	Close() error
}

type journalImpl[T any] struct {
	path   string
	file   *os.File
	mu     sync.Mutex
	length uint64
}

// OpenJournal opens (or creates) the journal at path. Valid records are
// counted; a torn, zero-filled or undecodable tail left by a crash is cut off
// so later appends start from the last committed record.
func OpenJournal[T any](path string) (Journal[T], error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		slog.Error("failed to open journal", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	length, goodOffset, err := scanFrames[T](file, info.Size())
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	if info.Size() > goodOffset {
		slog.Warn("truncating torn journal tail", "path", path, "size", info.Size(), "offset", goodOffset)

		if err := file.Truncate(goodOffset); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to truncate journal tail: %w", err)
		}
	}

	if _, err := file.Seek(goodOffset, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to seek journal: %w", err)
	}

	slog.Debug("opened journal", "path", path, "length", length)

	return &journalImpl[T]{path: path, file: file, length: length}, nil
}

// scanFrames walks the frames from the start of file and returns how many
// are intact and the offset just past the last intact one. A frame is intact
// when its checksum matches and its payload decodes as a T.
func scanFrames[T any](file *os.File, size int64) (uint64, int64, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, 0, fmt.Errorf("failed to seek journal: %w", err)
	}

	reader := bufio.NewReader(file)

	var (
		count  uint64
		offset int64
	)

	for {
		payload, err := readFrame(reader, size-offset)
		if err != nil {
			return count, offset, nil
		}

		if _, err := decodeItem[T](payload); err != nil {
			return count, offset, nil
		}

		count++
		offset += int64(frameHeaderSize + len(payload))
	}
}

// readFrame reads one frame from r, which has remaining bytes left.
func readFrame(r io.Reader, remaining int64) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[0:4])
	sum := binary.BigEndian.Uint32(header[4:8])

	if size == 0 {
		return nil, errEmptyFrame
	}

	if int64(size) > remaining-frameHeaderSize {
		return nil, errFrameTooLarge
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	if crc32.ChecksumIEEE(payload) != sum {
		return nil, errChecksumFailed
	}

	return payload, nil
}

func decodeItem[T any](payload []byte) (T, error) {
	var item T
	err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&item)

	return item, err
}

// Append implements Journal.
func (j *journalImpl[T]) Append(item T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return ErrJournalClosed
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(item); err != nil {
		slog.Error("failed to encode item", "path", j.path, "index", j.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	frame := make([]byte, frameHeaderSize+payload.Len())
	binary.BigEndian.PutUint32(frame[0:4], uint32(payload.Len()))
	binary.BigEndian.PutUint32(frame[4:8], crc32.ChecksumIEEE(payload.Bytes()))
	copy(frame[frameHeaderSize:], payload.Bytes())

	if _, err := j.file.Write(frame); err != nil {
		slog.Error("failed to write journal frame", "path", j.path, "error", err)
		return fmt.Errorf("failed to write item: %w", err)
	}

	if err := j.file.Sync(); err != nil {
		slog.Error("failed to sync journal", "path", j.path, "error", err)
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	j.length++
	slog.Debug("appended item", "path", j.path, "index", j.length-1)

	return nil
}

// Range implements Journal.
func (j *journalImpl[T]) Range(fn func(index uint64, item T) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return ErrJournalClosed
	}

	file, err := os.Open(j.path)
	if err != nil {
		slog.Error("failed to open file for range", "path", j.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "path", j.path, "error", err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat journal: %w", err)
	}

	reader := bufio.NewReader(file)
	remaining := info.Size()

	for i := range j.length {
		payload, err := readFrame(reader, remaining)
		if err != nil {
			slog.Error("failed to read frame during range", "path", j.path, "index", i, "error", err)
			return fmt.Errorf("failed to read item at index %d: %w", i, err)
		}

		remaining -= int64(frameHeaderSize + len(payload))

		item, err := decodeItem[T](payload)
		if err != nil {
			slog.Error("failed to decode item during range", "path", j.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			slog.Warn("range callback error", "path", j.path, "index", i, "error", err)
			return err
		}
	}

	slog.Debug("range completed", "path", j.path, "count", j.length)

	return nil
}

// Truncate implements Journal.
func (j *journalImpl[T]) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return ErrJournalClosed
	}

	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate journal: %w", err)
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek journal: %w", err)
	}

	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	j.length = 0

	return nil
}

// Close implements Journal.
func (j *journalImpl[T]) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return nil
	}

	if err := j.file.Sync(); err != nil {
		slog.Error("failed to sync journal on close", "path", j.path, "error", err)
	}

	if err := j.file.Close(); err != nil {
		slog.Error("failed to close file", "path", j.path, "error", err)
		return err
	}

	slog.Debug("closed journal", "path", j.path, "length", j.length)
	j.file = nil

	return nil
}
