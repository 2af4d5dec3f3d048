package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRoundTrip(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	j, err := OpenJournal("/mnt/card", "/raid/day01")
	require.NoError(t, err)

	require.NoError(t, j.MarkCompleted("DCIM/IMG_0001.CR3", 4096, 1234))
	require.NoError(t, j.Flush())

	assert.True(t, j.IsCompleted("DCIM/IMG_0001.CR3", 4096, 1234))
	assert.False(t, j.IsCompleted("DCIM/IMG_0001.CR3", 4096, 9999), "mtime change invalidates")
	assert.False(t, j.IsCompleted("DCIM/IMG_0001.CR3", 100, 1234), "size change invalidates")
	assert.False(t, j.IsCompleted("DCIM/IMG_0002.CR3", 4096, 1234))
	require.NoError(t, j.Close())

	// Reopening the same pair sees the flushed state.
	j2, err := OpenJournal("/mnt/card", "/raid/day01")
	require.NoError(t, err)
	defer j2.Close()
	assert.True(t, j2.IsCompleted("DCIM/IMG_0001.CR3", 4096, 1234))
}

func TestJournalRejectsDifferentPair(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	j, err := OpenJournal("/mnt/card", "/raid/day01")
	require.NoError(t, err)
	path := j.Path()
	require.NoError(t, j.Close())

	// Same ID only for the same pair, so force a collision by copying the
	// meta check path: reopen the same file with mismatched roots.
	j2, err := openJournalAt(path, "/mnt/other", "/raid/day01")
	assert.Error(t, err)
	if j2 != nil {
		j2.Close()
	}
}

func TestJournalDistinctPairsDistinctFiles(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	a, err := OpenJournal("/mnt/card", "/raid/day01")
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenJournal("/mnt/card", "/raid/day02")
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Path(), b.Path())

	require.NoError(t, a.MarkCompleted("x.mov", 1, 2))
	require.NoError(t, a.Flush())
	assert.False(t, b.IsCompleted("x.mov", 1, 2))
}

func TestJournalBatchFlushAtThreshold(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	j, err := OpenJournal("/src", "/dst")
	require.NoError(t, err)
	defer j.Close()

	// Below the batch threshold nothing is durable yet.
	require.NoError(t, j.MarkCompleted("a.mov", 1, 1))
	assert.False(t, j.IsCompleted("a.mov", 1, 1))

	for i := 0; i < 100; i++ {
		require.NoError(t, j.MarkCompleted("bulk.mov", int64(i), 1))
	}
	assert.True(t, j.IsCompleted("a.mov", 1, 1), "threshold flush persists the batch")
}

func TestJournalRemove(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	j, err := OpenJournal("/src", "/dst")
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Remove())
	assert.NoFileExists(t, j.Path())
}
