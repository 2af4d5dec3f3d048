package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kelgrand/offload/internal/digest"
	"github.com/kelgrand/offload/internal/event"
)

// TreeVerifyResult holds the outcome of a post-copy verification pass.
type TreeVerifyResult struct {
	Verified int64
	Failed   int64
	Errors   []VerifyError
}

// VerifyError records a single mismatch or unreadable file.
type VerifyError struct {
	Path    string
	SrcHash string
	DstHash string
}

// VerifyTree walks the destination tree and compares digests against the
// source for every media file present on both sides, fanning out to the
// engine's worker count. This is the belt-and-braces pass after a
// transfer that used the size-checked fast strategies.
func (e *Engine) VerifyTree(ctx context.Context, src, dst string, alg digest.Algorithm) TreeVerifyResult {
	event.Emit(e.opts.Events, event.Event{Type: event.VerifyStarted, Path: dst})

	files := e.collectVerifyFiles(ctx, src, dst)

	taskCh := make(chan string, e.opts.Workers*2)
	var mu sync.Mutex
	var result TreeVerifyResult
	var wg sync.WaitGroup

	record := func(rel, srcHash, dstHash string, ok bool) {
		mu.Lock()
		if ok {
			result.Verified++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, VerifyError{Path: rel, SrcHash: srcHash, DstHash: dstHash})
		}
		mu.Unlock()
	}

	for range e.opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range taskCh {
				if ctx.Err() != nil {
					return
				}

				srcHash, err := digest.File(ctx, filepath.Join(src, rel), alg)
				if err != nil {
					record(rel, "error", "n/a", false)
					e.opts.Stats.AddFilesVerifyFailed(1)
					event.Emit(e.opts.Events, event.Event{Type: event.VerifyFailed, Path: rel, Error: err})
					continue
				}

				dstHash, err := digest.File(ctx, filepath.Join(dst, rel), alg)
				if err != nil {
					record(rel, srcHash, "error", false)
					e.opts.Stats.AddFilesVerifyFailed(1)
					event.Emit(e.opts.Events, event.Event{Type: event.VerifyFailed, Path: rel, Error: err})
					continue
				}

				if !digest.Equal(srcHash, dstHash) {
					record(rel, srcHash, dstHash, false)
					e.opts.Stats.AddFilesVerifyFailed(1)
					event.Emit(e.opts.Events, event.Event{Type: event.VerifyFailed, Path: rel})
					continue
				}

				record(rel, srcHash, dstHash, true)
				e.opts.Stats.AddFilesVerified(1)
				event.Emit(e.opts.Events, event.Event{Type: event.VerifyOK, Path: rel})
			}
		}()
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
		case taskCh <- f:
		}
	}
	close(taskCh)
	wg.Wait()

	return result
}

// collectVerifyFiles walks the destination tree and returns relative
// paths of media files that also exist in the source.
func (e *Engine) collectVerifyFiles(ctx context.Context, src, dst string) []string {
	var files []string
	_ = filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != dst && e.opts.Filter.SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !e.opts.Filter.EligibleFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return nil
		}

		if _, err := os.Lstat(filepath.Join(src, rel)); err != nil {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	return files
}
