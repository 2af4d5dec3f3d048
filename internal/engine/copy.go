package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kelgrand/offload/internal/digest"
	"github.com/kelgrand/offload/internal/event"
	"github.com/kelgrand/offload/internal/platform"
)

// chunkSize is the streaming copy buffer; cancellation latency is bounded
// by one chunk.
const chunkSize = 1 << 20 // 1 MiB

// maxBufferedCopySize caps the whole-file-in-memory strategy.
const maxBufferedCopySize = 256 << 20

// testHookBeforeVerify runs between the streamed write and the
// destination digest, letting tests corrupt the bytes on disk.
var testHookBeforeVerify func(tmpPath string)

func (e *Engine) runFile(ctx context.Context, t *Task) error {
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
	if info.IsDir() {
		return newError(SourcePathInvalid, t.Src, fmt.Errorf("is a directory"))
	}

	if err := e.checkAccess(t.Src); err != nil {
		return err
	}

	label := displayName(t.Src)
	t.setTotals(1, info.Size())

	event.Emit(e.opts.Events, event.Event{Type: event.FileStarted, Path: label, Bytes: info.Size()})
	e.report(t, 0, label)

	t.setState(StateCopying)
	if err := e.copyOne(ctx, t, t.Src, t.Dst, info.Size(), label); err != nil {
		e.opts.Stats.AddFilesFailed(1)
		event.Emit(e.opts.Events, event.Event{Type: event.FileFailed, Path: label, Error: err})
		return err
	}

	t.addCompletedFile()
	e.opts.Stats.AddFilesCopied(1)
	event.Emit(e.opts.Events, event.Event{Type: event.FileCompleted, Path: label, Bytes: info.Size()})
	return nil
}

// copyOne transfers a single regular file through the strategy chain:
// native whole-file copy, buffered read+write, then digest-verified
// streaming. The first two are faster but only size-checked; streaming
// is the last resort and the only strategy that proves integrity.
func (e *Engine) copyOne(ctx context.Context, t *Task, src, dst string, size int64, label string) error {
	if err := e.gate(ctx, t); err != nil {
		return err
	}

	parent := filepath.Dir(dst)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return newError(DestinationNotWritable, parent, err)
	}

	if !e.opts.ForceStreaming {
		if e.copyNative(t, src, dst, size, label) {
			return nil
		}
		if err := e.gate(ctx, t); err != nil {
			return err
		}
		if e.copyBuffered(t, src, dst, size, label) {
			return nil
		}
		if err := e.gate(ctx, t); err != nil {
			return err
		}
	}

	return e.copyStreaming(ctx, t, src, dst, size, label)
}

// copyNative attempts the platform's whole-file primitive, then verifies
// the destination exists with the source's size. Any failure removes the
// destination and falls through.
func (e *Engine) copyNative(t *Task, src, dst string, size int64, label string) bool {
	res, err := e.nativeCopy(src, dst, size)
	if err != nil {
		_ = os.Remove(dst)
		e.opts.Logger.Debug("native copy unavailable", "src", src, "error", err)
		return false
	}

	info, err := os.Stat(dst)
	if err != nil || info.Size() != size {
		_ = os.Remove(dst)
		e.opts.Logger.Warn("native copy size mismatch, falling back", "src", src)
		return false
	}

	e.opts.Logger.Debug("copied", "src", src, "method", res.Method)
	e.report(t, size, label)
	return true
}

func (e *Engine) nativeCopy(src, dst string, size int64) (platform.Result, error) {
	if e.ring != nil {
		return e.ring.Copy(src, dst, size)
	}
	return platform.Copy(src, dst, size)
}

// copyBuffered reads the whole source into memory and writes it out, then
// size-checks. Bounded by maxBufferedCopySize; larger files go straight
// to streaming.
func (e *Engine) copyBuffered(t *Task, src, dst string, size int64, label string) bool {
	if size > maxBufferedCopySize {
		return false
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return false
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		_ = os.Remove(dst)
		return false
	}

	info, err := os.Stat(dst)
	if err != nil || info.Size() != size {
		_ = os.Remove(dst)
		e.opts.Logger.Warn("buffered copy size mismatch, falling back", "src", src)
		return false
	}

	e.opts.Logger.Debug("copied", "src", src, "method", "buffered")
	e.report(t, size, label)
	return true
}

// copyStreaming copies in fixed chunks with a digest taken of the source
// before the copy and of the destination after it. A mismatch deletes the
// copy and fails with ChecksumMismatch; nothing appears at dst until the
// verified temp file is renamed into place.
func (e *Engine) copyStreaming(ctx context.Context, t *Task, src, dst string, size int64, label string) error {
	srcSum, err := digest.File(ctx, src, e.opts.Algorithm)
	if err != nil {
		if ctx.Err() != nil {
			return newError(Cancelled, src, ctx.Err())
		}
		return classifyPathErr(src, err, true)
	}

	f, err := os.Open(src)
	if err != nil {
		return classifyPathErr(src, err, true)
	}
	defer f.Close()

	tmp := tmpPath(dst)
	RegisterTmp(tmp)
	defer func() {
		DeregisterTmp(tmp)
		_ = os.Remove(tmp) // no-op once renamed
	}()

	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return newError(DestinationNotWritable, dst, err)
	}

	var reader io.Reader = f
	if e.limiter != nil {
		reader = newRateLimitedReader(ctx, f, e.limiter)
	}

	buf := make([]byte, chunkSize)
	for {
		if err := e.gate(ctx, t); err != nil {
			out.Close()
			return err
		}

		n, rerr := reader.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return newError(CopyFailed, dst, werr)
			}
			e.report(t, int64(n), label)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			if ctx.Err() != nil {
				return newError(Cancelled, src, ctx.Err())
			}
			return newError(CopyFailed, src, rerr)
		}
	}

	if err := out.Close(); err != nil {
		return newError(CopyFailed, dst, err)
	}

	if testHookBeforeVerify != nil {
		testHookBeforeVerify(tmp)
	}

	t.setState(StateVerifying)
	event.Emit(e.opts.Events, event.Event{Type: event.VerifyStarted, Path: label})

	dstSum, err := digest.File(ctx, tmp, e.opts.Algorithm)
	if err != nil {
		if ctx.Err() != nil {
			return newError(Cancelled, src, ctx.Err())
		}
		return newError(CopyFailed, dst, err)
	}
	if !digest.Equal(srcSum, dstSum) {
		e.opts.Stats.AddFilesVerifyFailed(1)
		event.Emit(e.opts.Events, event.Event{Type: event.VerifyFailed, Path: label})
		return &Error{
			Kind:   ChecksumMismatch,
			Path:   src,
			Detail: fmt.Sprintf("%s source %s destination %s", e.opts.Algorithm, srcSum, dstSum),
		}
	}

	if err := e.gate(ctx, t); err != nil {
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		return newError(CopyFailed, dst, err)
	}

	e.opts.Stats.AddFilesVerified(1)
	event.Emit(e.opts.Events, event.Event{Type: event.VerifyOK, Path: label})
	t.setState(StateCopying)
	e.opts.Logger.Debug("copied", "src", src, "method", "streaming", "digest", dstSum)
	return nil
}

func tmpPath(dst string) string {
	dir := filepath.Dir(dst)
	base := filepath.Base(dst)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.offload-tmp", base, uuid.New().String()[:8]))
}

// classifyPathErr maps an os error to the engine taxonomy.
func classifyPathErr(path string, err error, isSrc bool) *Error {
	switch {
	case os.IsNotExist(err):
		return newError(FileNotFound, path, err)
	case os.IsPermission(err):
		return newError(PermissionDenied, path, err)
	case isSrc:
		return newError(SourcePathInvalid, path, err)
	default:
		return newError(DestinationPathInvalid, path, err)
	}
}
