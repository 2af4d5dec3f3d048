package engine

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBWLimiterBurst(t *testing.T) {
	assert.Equal(t, chunkSize, newBWLimiter(100<<20).Burst())
	assert.Equal(t, 512<<10, newBWLimiter(512<<10).Burst())
}

func TestRateLimitedReaderCapsReadToBurst(t *testing.T) {
	limiter := newBWLimiter(512 << 10)
	src := bytes.NewReader(makeData(chunkSize))
	r := newRateLimitedReader(context.Background(), src, limiter)

	// A full-chunk read must shrink to the burst instead of tripping
	// the limiter's n > burst rejection.
	buf := make([]byte, chunkSize)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 512<<10, n)
}

func TestBandwidthLimitBelowChunkStillCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out.mov")
	data := makeData(300 * 1024)
	writeFile(t, src, data)

	e := newTestEngine(t, Options{ForceStreaming: true, BytesPerSec: 512 << 10})
	require.NoError(t, e.Run(context.Background(), NewFileTask(src, dst)))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestRateLimitedReaderPropagatesEOF(t *testing.T) {
	limiter := newBWLimiter(10 << 20)
	r := newRateLimitedReader(context.Background(), bytes.NewReader(nil), limiter)

	n, err := r.Read(make([]byte, 64))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}
