package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kelgrand/offload/internal/event"
	"github.com/kelgrand/offload/internal/stats"
)

func TestPlainPresenterFileCompleted(t *testing.T) {
	var out, errOut bytes.Buffer
	collector := stats.NewCollector()

	p := &plainPresenter{w: &out, errW: &errOut, stats: collector}

	events := make(chan event.Event, 10)
	events <- event.Event{Type: event.FileCompleted, Path: "clips/a.mov", Bytes: 1024}
	events <- event.Event{Type: event.FileCompleted, Path: "clips/b.braw", Bytes: 1024 * 1024 * 100}
	close(events)

	assert.NoError(t, p.Run(events))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "clips/a.mov")
	assert.Contains(t, lines[1], "clips/b.braw")
}

func TestPlainPresenterFileFailed(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector()}

	events := make(chan event.Event, 5)
	events <- event.Event{Type: event.FileFailed, Path: "fail.mov", Bytes: 512, Error: assert.AnError}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "fail.mov")
	assert.Contains(t, out.String(), assert.AnError.Error())
}

func TestPlainPresenterStripsDstRoot(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector(), dstRoot: "/raid/day01"}

	events := make(chan event.Event, 5)
	events <- event.Event{Type: event.FileCompleted, Path: "/raid/day01/clips/a.mov", Bytes: 64}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "clips/a.mov")
	assert.NotContains(t, out.String(), "/raid/day01/")
}

func TestPlainPresenterScanAndMismatch(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector()}

	events := make(chan event.Event, 5)
	events <- event.Event{Type: event.ScanStarted, Path: "/mnt/card"}
	events <- event.Event{Type: event.ScanComplete, Path: "/mnt/card", Total: 1200, TotalSize: 5 << 30}
	events <- event.Event{Type: event.VerifyFailed, Path: "clips/a.mov"}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Contains(t, errOut.String(), "scanning /mnt/card")
	assert.Contains(t, errOut.String(), "1,200 files")
	assert.Contains(t, out.String(), "MISMATCH: clips/a.mov")
}

func TestQuietPresenterSilent(t *testing.T) {
	p := NewPresenter(Config{Quiet: true})

	events := make(chan event.Event, 3)
	events <- event.Event{Type: event.FileCompleted, Path: "a.mov"}
	events <- event.Event{Type: event.FileFailed, Path: "b.mov", Error: assert.AnError}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Empty(t, p.Summary())
}

func TestNewPresenterPlain(t *testing.T) {
	var out, errOut bytes.Buffer
	p := NewPresenter(Config{Writer: &out, ErrWriter: &errOut, Stats: stats.NewCollector()})
	_, ok := p.(*plainPresenter)
	assert.True(t, ok)
}

func TestNewPresenterProgressCadence(t *testing.T) {
	var out, errOut bytes.Buffer

	batch := NewPresenter(Config{Writer: &out, ErrWriter: &errOut, Stats: stats.NewCollector()})
	assert.Equal(t, 5*time.Second, batch.(*plainPresenter).progressEvery,
		"piped output gets the sparse cadence")

	tty := NewPresenter(Config{Writer: &out, ErrWriter: &errOut, Stats: stats.NewCollector(), Interactive: true})
	assert.Equal(t, time.Second, tty.(*plainPresenter).progressEvery,
		"a terminal gets the tight cadence")
}

func TestPlainPresenterFileSkipped(t *testing.T) {
	var out, errOut bytes.Buffer
	p := &plainPresenter{w: &out, errW: &errOut, stats: stats.NewCollector()}

	events := make(chan event.Event, 2)
	events <- event.Event{Type: event.FileSkipped, Path: "clips/a.mov"}
	close(events)

	assert.NoError(t, p.Run(events))
	assert.Contains(t, out.String(), "clips/a.mov  skipped")
}
