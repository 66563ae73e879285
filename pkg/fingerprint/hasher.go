// Package fingerprint computes content fingerprints of files
package fingerprint

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"github.com/sdejongh/orgphoto/pkg/models"
	"github.com/sdejongh/orgphoto/pkg/storage"
)

// DefaultBufferSize is the read buffer size used when none is configured
const DefaultBufferSize = 64 * 1024

// Hasher streams files through SHA-256
// It is safe for concurrent use; buffers are pooled
type Hasher struct {
	backend    storage.Backend
	bufferPool *sync.Pool
}

// NewHasher creates a new hasher reading through backend
func NewHasher(backend storage.Backend, bufferSize int) *Hasher {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &Hasher{
		backend: backend,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// Sum returns the fingerprint of the file at path
// Failures are reported as *models.HashError; cancellation returns ctx.Err()
func (h *Hasher) Sum(ctx context.Context, path string) (models.Fingerprint, error) {
	var fp models.Fingerprint

	reader, err := h.backend.Read(ctx, path)
	if err != nil {
		return fp, &models.HashError{Path: path, Err: err}
	}
	defer reader.Close()

	hasher := sha256.New()

	// Get buffer from pool
	bufPtr := h.bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer h.bufferPool.Put(bufPtr)

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return fp, ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fp, &models.HashError{Path: path, Err: fmt.Errorf("failed to read file: %w", err)}
		}
	}

	copy(fp[:], hasher.Sum(nil))
	return fp, nil
}
