// Package engine implements the verified copy pipeline: single-file and
// directory transfers with a native-copy fallback chain, digest
// verification, bounded worker concurrency, and cooperative
// pause/cancel.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"golang.org/x/time/rate"

	"github.com/kelgrand/offload/internal/access"
	"github.com/kelgrand/offload/internal/digest"
	"github.com/kelgrand/offload/internal/event"
	"github.com/kelgrand/offload/internal/mediafilter"
	"github.com/kelgrand/offload/internal/platform"
	"github.com/kelgrand/offload/internal/stats"
)

// ProgressFunc receives aggregate transfer progress. Calls may arrive out
// of order across concurrent workers, but each reported byte count is a
// unique partial sum and the full total is reported exactly once.
type ProgressFunc func(bytesSoFar, totalBytes int64, label string)

// Options configures an Engine.
type Options struct {
	// Algorithm is the inline-verification digest for streaming copies
	// and the default manifest algorithm. Zero value is MD5.
	Algorithm digest.Algorithm

	// Workers bounds file-level concurrency in directory transfers.
	// <= 0 means min(NumCPU, 8).
	Workers int

	// BytesPerSec caps aggregate streaming throughput. 0 = unlimited.
	BytesPerSec int64

	// ForceStreaming skips the native and buffered strategies so every
	// file gets the digest-verified streaming path.
	ForceStreaming bool

	// UseIOURing enables the io_uring native copy path on Linux.
	UseIOURing bool

	Progress ProgressFunc
	Events   chan<- event.Event
	Logger   *slog.Logger
	Grants   access.Granter
	Filter   *mediafilter.Filter
	Stats    *stats.Collector
	Journal  *Journal
}

// Engine runs transfer tasks. Construct with New; one Engine may run many
// tasks, but each Task belongs to a single Run call.
type Engine struct {
	opts    Options
	limiter *rate.Limiter
	ring    *platform.RingCopier
}

// New creates an Engine, filling in defaults for unset options.
func New(opts Options) (*Engine, error) {
	if opts.Workers <= 0 {
		opts.Workers = min(runtime.NumCPU(), 8)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Grants == nil {
		opts.Grants = access.ProbeGranter{}
	}
	if opts.Filter == nil {
		opts.Filter = mediafilter.Default()
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewCollector()
	}

	e := &Engine{opts: opts}

	if opts.BytesPerSec > 0 {
		e.limiter = newBWLimiter(opts.BytesPerSec)
	}

	if opts.UseIOURing {
		ring, err := platform.NewRingCopier(64)
		if err != nil {
			return nil, fmt.Errorf("init io_uring: %w", err)
		}
		e.ring = ring // nil if the kernel is too old
	}

	return e, nil
}

// Stats exposes the engine's collector for presenters.
func (e *Engine) Stats() *stats.Collector { return e.opts.Stats }

// Close releases native resources and removes stray temp files.
func (e *Engine) Close() {
	CleanupTmpFiles()
	if e.ring != nil {
		_ = e.ring.Close()
	}
}

// Run executes the task, blocking until it reaches a terminal state.
// The returned error, if non-nil, is always an *Error.
func (e *Engine) Run(ctx context.Context, t *Task) error {
	t.start()

	var err error
	switch t.Kind {
	case KindDirectory:
		err = e.runDirectory(ctx, t)
	default:
		err = e.runFile(ctx, t)
	}

	if err != nil {
		return t.fail(err)
	}
	t.complete()
	return nil
}

// checkAccess verifies the access grant for path, requesting one if the
// collaborator supports it, and re-querying after any grant.
func (e *Engine) checkAccess(path string) error {
	if e.opts.Grants.HasAccess(path) {
		return nil
	}
	if !e.opts.Grants.RequestAccess(path) {
		return newError(PermissionDenied, path, nil)
	}
	if !e.opts.Grants.HasAccess(path) {
		return newError(PermissionDenied, path, nil)
	}
	return nil
}

// gate observes pause and cancellation at file and chunk boundaries.
func (e *Engine) gate(ctx context.Context, t *Task) error {
	if err := t.gate(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return newError(Cancelled, t.Src, ctx.Err())
	}
	return nil
}

// report adds a byte delta to the task aggregate and publishes the
// resulting partial sum. Safe for concurrent workers: atomic-add
// semantics make every published value unique.
func (e *Engine) report(t *Task, delta int64, label string) {
	agg, total := t.progress(delta)
	e.opts.Stats.AddBytesCopied(delta)
	if e.opts.Progress != nil {
		e.opts.Progress(agg, total, label)
	}
	event.Emit(e.opts.Events, event.Event{
		Type:      event.FileProgress,
		Path:      label,
		Bytes:     agg,
		TotalSize: total,
	})
}

func displayName(path string) string {
	return filepath.Base(path)
}
