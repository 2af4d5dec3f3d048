package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// newBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec. The burst is one chunk so natural read sizes pass without
// blocking on small reads.
func newBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := chunkSize
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// rateLimitedReader wraps an io.Reader and enforces a limit shared by all
// streaming workers.
type rateLimitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func newRateLimitedReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) *rateLimitedReader {
	return &rateLimitedReader{r: r, limiter: limiter, ctx: ctx}
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	// WaitN rejects requests above the burst outright, so a low limit
	// must shrink the read rather than fail the copy.
	if b := rl.limiter.Burst(); len(p) > b {
		p = p[:b]
	}
	n, err := rl.r.Read(p)
	if n > 0 {
		if waitErr := rl.limiter.WaitN(rl.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
