package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelgrand/offload/internal/digest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func makeData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i>>8)
	}
	return data
}

func TestCopyFileSuccess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "card", "A001C001.mov")
	dst := filepath.Join(dir, "raid", "day01", "A001C001.mov")

	data := makeData(300 * 1024)
	writeFile(t, src, data)

	e := newTestEngine(t, Options{})
	task := NewFileTask(src, dst)
	require.NoError(t, e.Run(context.Background(), task))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	snap := task.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.Equal(t, 1, snap.CompletedFiles)
	assert.Equal(t, int64(len(data)), snap.BytesTransferred)
	assert.Equal(t, int64(len(data)), snap.TotalBytes)
	assert.False(t, snap.EndTime.IsZero())
}

// A repeated copy of the same source onto the same destination must yield
// an identical result.
func TestCopyFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.braw")
	dst := filepath.Join(dir, "out", "src.braw")

	data := makeData(64 * 1024)
	writeFile(t, src, data)

	e := newTestEngine(t, Options{})
	require.NoError(t, e.Run(context.Background(), NewFileTask(src, dst)))
	first, err := digest.File(context.Background(), dst, digest.MD5)
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background(), NewFileTask(src, dst)))
	second, err := digest.File(context.Background(), dst, digest.MD5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	srcSum, err := digest.File(context.Background(), src, digest.MD5)
	require.NoError(t, err)
	assert.Equal(t, srcSum, second)
}

func TestCopyFileStreamingVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out", "clip.mov")

	// Spans several chunks so the streaming loop really loops.
	data := makeData(int(chunkSize)*2 + 4097)
	writeFile(t, src, data)

	e := newTestEngine(t, Options{ForceStreaming: true})
	task := NewFileTask(src, dst)
	require.NoError(t, e.Run(context.Background(), task))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(1), e.Stats().Snapshot().FilesVerified)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, Options{})

	task := NewFileTask(filepath.Join(dir, "absent.mov"), filepath.Join(dir, "out.mov"))
	err := e.Run(context.Background(), task)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, StateFailed, task.State())
}

func TestCopyFileEmptyPaths(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, Options{})

	err := e.Run(context.Background(), NewFileTask("", filepath.Join(dir, "x.mov")))
	assert.ErrorIs(t, err, ErrSourcePathInvalid)

	src := filepath.Join(dir, "a.mov")
	writeFile(t, src, []byte("x"))
	err = e.Run(context.Background(), NewFileTask(src, ""))
	assert.ErrorIs(t, err, ErrDestinationPathInvalid)
}

func TestCopyFileSourceIsDirectory(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, Options{})

	err := e.Run(context.Background(), NewFileTask(dir, filepath.Join(dir, "out.mov")))
	assert.ErrorIs(t, err, ErrSourcePathInvalid)
}

// Corrupting the written bytes before verification must delete the
// destination and report ChecksumMismatch.
func TestChecksumMismatchCleanup(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out", "clip.mov")
	writeFile(t, src, makeData(128*1024))

	testHookBeforeVerify = func(tmpPath string) {
		f, err := os.OpenFile(tmpPath, os.O_WRONLY, 0)
		require.NoError(t, err)
		defer f.Close()
		_, err = f.WriteAt([]byte{0xFF, 0x00, 0xFF}, 100)
		require.NoError(t, err)
	}
	defer func() { testHookBeforeVerify = nil }()

	e := newTestEngine(t, Options{ForceStreaming: true})
	task := NewFileTask(src, dst)
	err := e.Run(context.Background(), task)

	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Equal(t, StateFailed, task.State())
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr), "destination must not exist after a mismatch")

	// No stray temp files either.
	entries, readErr := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

// Cancelling mid-stream must leave no destination file.
func TestCancelMidStream(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out", "clip.mov")
	writeFile(t, src, makeData(int(chunkSize)*4))

	var task *Task
	e := newTestEngine(t, Options{
		ForceStreaming: true,
		Progress: func(bytesSoFar, _ int64, _ string) {
			if bytesSoFar >= chunkSize {
				task.Cancel()
			}
		},
	})

	task = NewFileTask(src, dst)
	err := e.Run(context.Background(), task)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateFailed, task.State())
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))

	entries, readErr := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, readErr)
	assert.Empty(t, entries, "no partial file may remain")
}

func TestContextCancellation(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	writeFile(t, src, []byte("data"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, Options{})
	err := e.Run(ctx, NewFileTask(src, filepath.Join(dir, "out.mov")))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestProgressReportedAtStartAndCompletion(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out.mov")
	data := makeData(50 * 1024)
	writeFile(t, src, data)

	var calls []int64
	e := newTestEngine(t, Options{
		Progress: func(bytesSoFar, totalBytes int64, label string) {
			assert.Equal(t, int64(len(data)), totalBytes)
			assert.Equal(t, "clip.mov", label)
			calls = append(calls, bytesSoFar)
		},
	})

	require.NoError(t, e.Run(context.Background(), NewFileTask(src, dst)))
	require.NotEmpty(t, calls)
	assert.Equal(t, int64(0), calls[0], "first call reports zero bytes")
	assert.Equal(t, int64(len(data)), calls[len(calls)-1], "last call reports the full size")
}

func TestBandwidthLimitStillCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mov")
	dst := filepath.Join(dir, "out.mov")
	data := makeData(8 * 1024)
	writeFile(t, src, data)

	e := newTestEngine(t, Options{ForceStreaming: true, BytesPerSec: 10 << 20})
	require.NoError(t, e.Run(context.Background(), NewFileTask(src, dst)))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
