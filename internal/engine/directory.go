package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kelgrand/offload/internal/event"
)

// maxAggregatedErrors bounds the failure sample in an all-failed report.
const maxAggregatedErrors = 5

func (e *Engine) runDirectory(ctx context.Context, t *Task) error {
	if t.Src == "" {
		return newError(SourcePathInvalid, t.Src, nil)
	}
	if t.Dst == "" {
		return newError(DestinationPathInvalid, t.Dst, nil)
	}

	info, err := os.Stat(t.Src)
	if err != nil {
		return classifyPathErr(t.Src, err, true)
	}
	if !info.IsDir() {
		return newError(SourcePathInvalid, t.Src, fmt.Errorf("not a directory"))
	}

	if err := e.checkAccess(t.Src); err != nil {
		return err
	}

	event.Emit(e.opts.Events, event.Event{Type: event.ScanStarted, Path: t.Src})

	items, totalBytes, journaled, err := e.scanTree(ctx, t)
	if err != nil {
		if ctx.Err() != nil {
			return newError(Cancelled, t.Src, ctx.Err())
		}
		return classifyPathErr(t.Src, err, true)
	}

	if len(items) == 0 {
		// A resume that finds every file already journaled has nothing
		// left to do; that is the transfer finishing, not failing.
		if journaled > 0 {
			e.opts.Logger.Info("all files already offloaded", "skipped", journaled)
			return nil
		}
		// Zero eligible files is reported as FileNotFound even when
		// filtered files were present: the caller must be able to tell
		// "nothing to copy" apart from a scan failure.
		return newError(FileNotFound, t.Src, errors.New("no eligible media files"))
	}

	t.setTotals(len(items), totalBytes)
	e.opts.Stats.SetTotals(int64(len(items)), totalBytes)
	event.Emit(e.opts.Events, event.Event{
		Type:      event.ScanComplete,
		Path:      t.Src,
		Total:     int64(len(items)),
		TotalSize: totalBytes,
	})

	label := displayName(t.Src)
	e.report(t, 0, label)
	t.setState(StateCopying)

	// Bounded worker pool with a join barrier. The per-file copies run
	// concurrently; shared counters live in the Task and the stats
	// collector, both safe under concurrent completion.
	work := make(chan scanItem)
	var wg sync.WaitGroup

	for range e.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				e.copyDirItem(ctx, t, item)
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case work <- item:
		case <-ctx.Done():
			break feed
		}
		if t.Cancelled() {
			break
		}
	}
	close(work)
	wg.Wait()

	if err := e.gate(ctx, t); err != nil {
		return err
	}

	snap := t.Snapshot()
	if snap.CompletedFiles == 0 {
		return &Error{
			Kind:   CopyFailed,
			Path:   t.Src,
			Detail: aggregateFailures(snap.FailedFiles),
		}
	}

	// Partial success is success; the failed and skipped lists stay on
	// the task for the caller to render.
	if len(snap.FailedFiles) > 0 {
		e.opts.Logger.Warn("directory transfer finished with failures",
			"copied", snap.CompletedFiles, "failed", len(snap.FailedFiles))
	}
	return nil
}

func (e *Engine) copyDirItem(ctx context.Context, t *Task, item scanItem) {
	if err := e.gate(ctx, t); err != nil {
		return
	}

	dst := filepath.Join(t.Dst, item.rel)
	event.Emit(e.opts.Events, event.Event{Type: event.FileStarted, Path: item.rel, Bytes: item.size})

	if err := e.copyOne(ctx, t, item.src, dst, item.size, item.rel); err != nil {
		var te *Error
		if errors.As(err, &te) && te.Kind == Cancelled {
			return
		}
		e.opts.Logger.Warn("file copy failed", "path", item.rel, "error", err)
		t.addFailedFile(item.rel, err)
		t.addSkipped(item.src)
		e.opts.Stats.AddFilesFailed(1)
		event.Emit(e.opts.Events, event.Event{Type: event.FileFailed, Path: item.rel, Error: err})
		return
	}

	t.addCompletedFile()
	e.opts.Stats.AddFilesCopied(1)
	event.Emit(e.opts.Events, event.Event{Type: event.FileCompleted, Path: item.rel, Bytes: item.size})

	if e.opts.Journal != nil {
		if err := e.opts.Journal.MarkCompleted(item.rel, item.size, item.modTime); err != nil {
			e.opts.Logger.Warn("journal write failed", "path", item.rel, "error", err)
		}
	}
}

// aggregateFailures joins the first few per-file errors into one message.
func aggregateFailures(failed []FileError) string {
	if len(failed) == 0 {
		return "no files copied"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "all %d files failed", len(failed))
	for i, fe := range failed {
		if i == maxAggregatedErrors {
			fmt.Fprintf(&sb, "; and %d more", len(failed)-maxAggregatedErrors)
			break
		}
		fmt.Fprintf(&sb, "; %s: %v", fe.Path, fe.Err)
	}
	return sb.String()
}
