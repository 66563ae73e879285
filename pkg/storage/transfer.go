package storage

import (
	"context"
	"fmt"
	"io"
)

type writeFunc func(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

// Copy copies src to a new file at dst, preserving modification time and permissions
// It fails if dst already exists
func Copy(ctx context.Context, b Backend, src, dst string) error {
	return transfer(ctx, b, src, dst, b.WriteNew)
}

// Overwrite replaces the content of dst with src, preserving the source metadata
func Overwrite(ctx context.Context, b Backend, src, dst string) error {
	return transfer(ctx, b, src, dst, b.Write)
}

// Move moves src to dst, failing if dst exists
func Move(ctx context.Context, b Backend, src, dst string) error {
	return b.Rename(ctx, src, dst)
}

func transfer(ctx context.Context, b Backend, src, dst string, write writeFunc) error {
	info, err := b.Stat(ctx, src)
	if err != nil {
		return err
	}
	if info.IsDir {
		return fmt.Errorf("source is a directory: %s", src)
	}

	reader, err := b.Read(ctx, src)
	if err != nil {
		return err
	}
	defer reader.Close()

	return write(ctx, dst, reader, info.Size, info)
}
