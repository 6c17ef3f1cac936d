package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrFileNotFound = errors.New("file not found")

// FileInfo describes a stored object
type FileInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// StorageInterface defines the interface for receipt storage backends
type StorageInterface interface {
	// SaveFile stores the content of reader under key and returns the number of bytes written
	SaveFile(ctx context.Context, key string, reader io.Reader) (int64, error)

	// ReadFile opens a file for reading. Returns ErrFileNotFound for unknown keys.
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// DeleteFile removes a file from storage. Deleting a missing key is not an error.
	DeleteFile(ctx context.Context, key string) error

	// ListFiles returns every object whose key starts with prefix
	ListFiles(ctx context.Context, prefix string) ([]FileInfo, error)
}
