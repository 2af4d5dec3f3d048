package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "not started", StateNotStarted.String())
	assert.Equal(t, "copying", StateCopying.String())
	assert.Equal(t, "verifying", StateVerifying.String())
	assert.Equal(t, "paused", StatePaused.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateCopying.Terminal())
	assert.False(t, StatePaused.Terminal())
}

func TestTaskLifecycle(t *testing.T) {
	task := NewFileTask("/a", "/b")
	assert.Equal(t, StateNotStarted, task.State())

	task.start()
	assert.Equal(t, StatePreparing, task.State())
	assert.False(t, task.Snapshot().StartTime.IsZero())

	task.setState(StateCopying)
	task.complete()
	snap := task.Snapshot()
	assert.Equal(t, StateCompleted, snap.State)
	assert.False(t, snap.EndTime.IsZero())
}

func TestPauseOnlyFromActiveStates(t *testing.T) {
	task := NewFileTask("/a", "/b")

	// Not started: Pause is a no-op.
	task.Pause()
	assert.Equal(t, StateNotStarted, task.State())

	task.setState(StateCopying)
	task.Pause()
	assert.Equal(t, StatePaused, task.State())
	task.Resume()
	assert.Equal(t, StateCopying, task.State())

	task.setState(StateVerifying)
	task.Pause()
	task.Resume()
	assert.Equal(t, StateVerifying, task.State(), "resume returns to the paused-from state")

	task.complete()
	task.Pause()
	assert.Equal(t, StateCompleted, task.State())
}

func TestResumeWithoutPauseIsNoop(t *testing.T) {
	task := NewFileTask("/a", "/b")
	task.setState(StateCopying)
	task.Resume()
	assert.Equal(t, StateCopying, task.State())
}

func TestGateBlocksWhilePaused(t *testing.T) {
	task := NewFileTask("/a", "/b")
	task.setState(StateCopying)
	task.Pause()

	released := make(chan error, 1)
	go func() {
		released <- task.gate()
	}()

	select {
	case <-released:
		t.Fatal("gate returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	task.Resume()
	select {
	case err := <-released:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("gate did not release after resume")
	}
}

func TestCancelWakesPausedGate(t *testing.T) {
	task := NewFileTask("/a", "/b")
	task.setState(StateCopying)
	task.Pause()

	released := make(chan error, 1)
	go func() {
		released <- task.gate()
	}()

	task.Cancel()
	select {
	case err := <-released:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("cancel did not wake the paused gate")
	}
}

func TestCancelledGateAlwaysFails(t *testing.T) {
	task := NewFileTask("/a", "/b")
	require.NoError(t, task.gate())
	task.Cancel()
	assert.True(t, task.Cancelled())
	assert.ErrorIs(t, task.gate(), ErrCancelled)
	assert.ErrorIs(t, task.gate(), ErrCancelled)
}

// Concurrent workers adding deltas: every aggregate is a unique partial
// sum and the final one equals the total.
func TestProgressUniquePartialSums(t *testing.T) {
	const workers = 8
	const perWorker = 200
	const delta = int64(3)

	task := NewDirectoryTask("/src", "/dst")
	total := int64(workers * perWorker * delta)
	task.setTotals(workers*perWorker, total)

	var mu sync.Mutex
	seen := make(map[int64]int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				agg, tot := task.progress(delta)
				assert.Equal(t, total, tot)
				mu.Lock()
				seen[agg]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, seen[total], "the full total is observed exactly once")
	for agg, count := range seen {
		assert.Equal(t, 1, count, "aggregate %d observed more than once", agg)
		assert.LessOrEqual(t, agg, total)
	}
	assert.Equal(t, total, task.Snapshot().BytesTransferred)
}

func TestSnapshotCopiesSlices(t *testing.T) {
	task := NewDirectoryTask("/src", "/dst")
	task.addFailedFile("/src/a.mov", ErrCopyFailed)
	task.addSkipped("/src/a.mov")

	snap := task.Snapshot()
	require.Len(t, snap.FailedFiles, 1)
	require.Len(t, snap.SkippedItems, 1)

	snap.FailedFiles[0].Path = "mutated"
	snap.SkippedItems[0] = "mutated"
	fresh := task.Snapshot()
	assert.Equal(t, "/src/a.mov", fresh.FailedFiles[0].Path)
	assert.Equal(t, "/src/a.mov", fresh.SkippedItems[0])
}
