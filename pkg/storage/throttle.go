package storage

import (
	"context"
	"io"

	"github.com/sdejongh/orgphoto/pkg/ratelimit"
)

// throttled reads file content through a shared bandwidth limiter
type throttled struct {
	Backend
	limiter *ratelimit.Limiter
}

// Throttled wraps b so that every Read shares limiter
// A nil limiter returns b unchanged
func Throttled(b Backend, limiter *ratelimit.Limiter) Backend {
	if limiter == nil {
		return b
	}
	return &throttled{Backend: b, limiter: limiter}
}

func (t *throttled) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := t.Backend.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewReadCloser(ctx, rc, t.limiter), nil
}
