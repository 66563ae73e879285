package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
)

// FS is a storage backend over an afero filesystem
type FS struct {
	fs afero.Fs
}

// New creates a backend over the given afero filesystem
func New(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// NewLocal creates a backend over the operating system filesystem
func NewLocal() *FS {
	return New(afero.NewOsFs())
}

// NewMemory creates a backend over an empty in-memory filesystem
func NewMemory() *FS {
	return New(afero.NewMemMapFs())
}

// Afero exposes the underlying filesystem
func (b *FS) Afero() afero.Fs {
	return b.fs
}

func toFileInfo(path, root string, info os.FileInfo) FileInfo {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return FileInfo{
		Path:         path,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		Permissions:  uint32(info.Mode().Perm()),
		RelativePath: rel,
	}
}

// Walk visits root and everything below it
func (b *FS) Walk(ctx context.Context, root string, fn WalkFunc) error {
	return afero.Walk(b.fs, root, func(p string, info os.FileInfo, err error) error {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if p == root {
				return fmt.Errorf("failed to walk %s: %w", root, err)
			}
			fi := FileInfo{Path: p}
			if info != nil {
				fi = toFileInfo(p, root, info)
			}
			return fn(fi, err)
		}

		return fn(toFileInfo(p, root, info), nil)
	})
}

// List returns all entries below path recursively
func (b *FS) List(ctx context.Context, path string) ([]FileInfo, error) {
	var files []FileInfo

	err := b.Walk(ctx, path, func(info FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Path == path {
			return nil
		}
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Read opens a file for reading
func (b *FS) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := b.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Write creates or truncates a file
func (b *FS) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	return b.write(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, reader, size, metadata)
}

// WriteNew creates a file that must not exist yet
func (b *FS) WriteNew(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	return b.write(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, reader, size, metadata)
}

// write fills path from reader; a file it created exclusively is removed again on failure
func (b *FS) write(path string, flag int, reader io.Reader, size int64, metadata *FileInfo) (err error) {
	// Ensure parent directory exists
	if err := b.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := b.fs.OpenFile(path, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if flag&os.O_EXCL != 0 {
		defer func() {
			if err != nil {
				_ = b.fs.Remove(path)
			}
		}()
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	// Preserve metadata if provided, after close so the mtime sticks
	if metadata != nil {
		if !metadata.ModTime.IsZero() {
			if err := b.fs.Chtimes(path, metadata.ModTime, metadata.ModTime); err != nil {
				return fmt.Errorf("failed to set modification time: %w", err)
			}
		}

		if metadata.Permissions != 0 {
			if err := b.fs.Chmod(path, os.FileMode(metadata.Permissions)); err != nil {
				return fmt.Errorf("failed to set permissions: %w", err)
			}
		}
	}

	return nil
}

// Rename moves a file without replacing an existing one
func (b *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	exists, err := b.Exists(ctx, newPath)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("failed to rename: %w", &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: os.ErrExist})
	}

	if err := b.fs.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	err = b.fs.Rename(oldPath, newPath)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to rename: %w", err)
	}

	// Cross-device: copy then delete the original
	if err := Copy(ctx, b, oldPath, newPath); err != nil {
		return err
	}
	if err := b.fs.Remove(oldPath); err != nil {
		// Keep a single copy: the original stays, the new one goes
		_ = b.fs.Remove(newPath)
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}

// Delete removes a file or directory
func (b *FS) Delete(ctx context.Context, path string) error {
	if err := b.fs.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (b *FS) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := afero.Exists(b.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}

// Stat returns file metadata
func (b *FS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	fi := toFileInfo(path, filepath.Dir(path), info)
	return &fi, nil
}

// MkdirAll creates a directory and all necessary parents
func (b *FS) MkdirAll(ctx context.Context, path string) error {
	if err := b.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for afero filesystems)
func (b *FS) Close() error {
	return nil
}
