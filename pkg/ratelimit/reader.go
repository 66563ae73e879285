// Package ratelimit throttles file content transfers with a shared token bucket
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucket keeps small limits from splitting reads into tiny chunks
const minBucket = 64 * 1024

// Limiter is a token bucket shared by every reader of a run
// Tokens are bytes; the bucket holds at most one second of transfer
type Limiter struct {
	mu             sync.Mutex
	bytesPerSecond int64
	bucketSize     int64
	tokens         int64
	lastUpdate     time.Time
}

// NewLimiter creates a limiter for bytesPerSecond
// A limit <= 0 means unlimited and returns nil
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	bucketSize := max(bytesPerSecond, minBucket)
	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		bucketSize:     bucketSize,
		tokens:         bucketSize,
		lastUpdate:     time.Now(),
	}
}

// Rate returns the limit in bytes per second
func (l *Limiter) Rate() int64 {
	return l.bytesPerSecond
}

// Wait blocks until n bytes may be transferred or ctx is done
// n is capped to the bucket size
func (l *Limiter) Wait(ctx context.Context, n int64) error {
	n = min(n, l.bucketSize)
	for {
		l.mu.Lock()
		l.refill(time.Now())
		if l.tokens >= n {
			l.mu.Unlock()
			return nil
		}
		deficit := n - l.tokens
		l.mu.Unlock()

		wait := max(time.Duration(float64(deficit)/float64(l.bytesPerSecond)*float64(time.Second)), time.Millisecond)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// consume takes n tokens after a read; the bucket never goes negative
func (l *Limiter) consume(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = max(l.tokens-n, 0)
}

// refill adds the tokens earned since the last update; callers hold mu
func (l *Limiter) refill(now time.Time) {
	earned := int64(now.Sub(l.lastUpdate).Seconds() * float64(l.bytesPerSecond))
	if earned <= 0 {
		return
	}
	l.tokens = min(l.tokens+earned, l.bucketSize)
	l.lastUpdate = now
}

type reader struct {
	ctx     context.Context
	r       io.Reader
	limiter *Limiter
}

// NewReader wraps r so its reads draw from limiter
// A nil limiter returns r unchanged
func NewReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, limiter: limiter}
}

func (r *reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	want := min(int64(len(p)), r.limiter.bucketSize)
	if err := r.limiter.Wait(r.ctx, want); err != nil {
		return 0, err
	}

	n, err := r.r.Read(p[:want])
	if n > 0 {
		r.limiter.consume(int64(n))
	}
	return n, err
}

type readCloser struct {
	io.Reader
	io.Closer
}

// NewReadCloser is NewReader for an io.ReadCloser; Close reaches the wrapped value
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return readCloser{Reader: NewReader(ctx, rc, limiter), Closer: rc}
}
