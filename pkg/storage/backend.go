package storage

import (
	"context"
	"io"
	"io/fs"
	"time"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	Permissions  uint32
	RelativePath string
}

// WalkFunc is called for every entry below the walked root, directories included
// Returning SkipDir from a directory entry skips its content; an error from
// a file entry reports why it could not be read
type WalkFunc func(info FileInfo, err error) error

// SkipDir is used as a return value from a WalkFunc to skip a directory
var SkipDir = fs.SkipDir

// Backend defines the interface for storage operations
// Paths are absolute; the afero implementation serves the OS and in-memory filesystems
type Backend interface {
	// Walk visits the tree rooted at root in lexical order
	// It is lazy, finite and can be restarted
	Walk(ctx context.Context, root string, fn WalkFunc) error

	// List returns all files in the specified directory recursively
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or truncates a file with the given content
	// If metadata is provided, attempts to preserve timestamps and permissions
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// WriteNew is Write with exclusive creation: it fails if path exists
	WriteNew(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Rename moves a file, failing if the new path already exists
	// Falls back to copy and delete across devices
	Rename(ctx context.Context, oldPath, newPath string) error

	// Delete removes a file or directory
	Delete(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}
