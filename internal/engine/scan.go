package engine

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kelgrand/offload/internal/event"
)

// scanItem is one eligible file found by the pre-copy scan.
type scanItem struct {
	src     string
	rel     string
	size    int64
	modTime int64 // unix nanos, for journal matching
}

// scanTree enumerates eligible media files under t.Src, accumulating the
// total byte size so the copy phase has an exact progress denominator
// before any byte moves. Subdirectories that fail to enumerate are
// logged, recorded as skipped, and do not abort the transfer; only a
// failure on the root is fatal. The second count is files the journal
// already accounts for, so the caller can tell an exhausted resume apart
// from an empty card.
func (e *Engine) scanTree(ctx context.Context, t *Task) ([]scanItem, int64, int, error) {
	var items []scanItem
	var totalBytes int64
	var journaled int

	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if dir == t.Src {
				return err
			}
			e.opts.Logger.Warn("skipping unreadable directory", "dir", dir, "error", err)
			t.addSkipped(dir)
			event.Emit(e.opts.Events, event.Event{Type: event.FileSkipped, Path: dir})
			return nil
		}

		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(dir, name)

			if entry.IsDir() {
				if e.opts.Filter.SkipDir(name) {
					continue
				}
				if err := walk(path); err != nil {
					return err
				}
				continue
			}

			if !entry.Type().IsRegular() || !e.opts.Filter.EligibleFile(name) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				e.opts.Logger.Warn("skipping unstattable file", "path", path, "error", err)
				t.addSkipped(path)
				event.Emit(e.opts.Events, event.Event{Type: event.FileSkipped, Path: path})
				continue
			}

			rel, err := filepath.Rel(t.Src, path)
			if err != nil {
				t.addSkipped(path)
				continue
			}

			mtime := info.ModTime().UnixNano()
			if e.opts.Journal != nil && e.opts.Journal.IsCompleted(rel, info.Size(), mtime) {
				e.opts.Logger.Debug("already offloaded, skipping", "path", rel)
				e.opts.Stats.AddFilesSkipped(1)
				event.Emit(e.opts.Events, event.Event{Type: event.FileSkipped, Path: rel})
				journaled++
				continue
			}

			items = append(items, scanItem{src: path, rel: rel, size: info.Size(), modTime: mtime})
			totalBytes += info.Size()
		}
		return nil
	}

	if err := walk(t.Src); err != nil {
		return nil, 0, 0, err
	}
	return items, totalBytes, journaled, nil
}
