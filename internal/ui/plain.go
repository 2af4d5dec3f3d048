// Package ui renders offload progress to the terminal: one line per
// completed file plus a periodic aggregate line, driven by the engine's
// event channel and the shared stats collector.
package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/kelgrand/offload/internal/event"
	"github.com/kelgrand/offload/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan event.Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Stats     *stats.Collector
	DstRoot   string
	Quiet     bool
	// Interactive tightens the aggregate-progress cadence when the
	// error stream is a terminal rather than a log.
	Interactive bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	progressEvery := 5 * time.Second
	if cfg.Interactive {
		progressEvery = time.Second
	}
	return &plainPresenter{
		w:             cfg.Writer,
		errW:          cfg.ErrWriter,
		stats:         cfg.Stats,
		dstRoot:       cfg.DstRoot,
		progressEvery: progressEvery,
	}
}

// plainPresenter outputs one line per completed file to stdout,
// and periodic aggregate progress to stderr.
type plainPresenter struct {
	w             io.Writer
	errW          io.Writer
	stats         *stats.Collector
	dstRoot       string
	progressEvery time.Duration
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	every := p.progressEvery
	if every == 0 {
		every = 5 * time.Second
	}

	var lastProgress time.Time
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case now := <-ticker.C:
			p.stats.Tick()
			if now.Sub(lastProgress) >= every {
				p.printProgress()
				lastProgress = now
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	path := StripRoot(p.dstRoot, ev.Path)
	switch ev.Type {
	case event.ScanStarted:
		fmt.Fprintf(p.errW, "scanning %s\n", ev.Path)
	case event.ScanComplete:
		fmt.Fprintf(p.errW, "found %s files, %s\n",
			FormatCount(ev.Total), FormatBytes(ev.TotalSize))
	case event.FileCompleted:
		speed := p.stats.RollingSpeed(5)
		fmt.Fprintf(p.w, "%s  %s  %s\n", path, FormatBytes(ev.Bytes), FormatRate(speed))
	case event.FileFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.w, "%s  %s  %s\n", path, FormatBytes(ev.Bytes), errMsg)
	case event.FileSkipped:
		fmt.Fprintf(p.w, "%s  skipped\n", path)
	case event.VerifyFailed:
		fmt.Fprintf(p.w, "MISMATCH: %s\n", path)
	case event.ManifestWritten:
		fmt.Fprintf(p.w, "manifest: %s\n", ev.Path)
	case event.VolumeAttached:
		fmt.Fprintf(p.errW, "volume attached: %s\n", ev.Path)
	case event.VolumeDetached:
		fmt.Fprintf(p.errW, "volume detached: %s\n", ev.Path)
	case event.VerifyOK:
		// silent in plain mode
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	if snap.BytesTotal > 0 {
		pct := float64(snap.BytesCopied) / float64(snap.BytesTotal) * 100
		fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s %s/%s files %s eta %s\n",
			pct,
			FormatBytes(snap.BytesCopied), FormatBytes(snap.BytesTotal),
			FormatCount(snap.FilesCopied), FormatCount(snap.FilesTotal),
			FormatRate(p.stats.RollingSpeed(10)),
			FormatETA(p.stats.ETA()),
		)
	} else {
		fmt.Fprintf(p.errW, "progress: %s copied %s files\n",
			FormatBytes(snap.BytesCopied),
			FormatCount(snap.FilesCopied),
		)
	}
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan event.Event) error {
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string { return "" }
