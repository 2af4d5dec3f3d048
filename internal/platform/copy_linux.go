//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Copy copies the whole file at src to a new file at dst using
// copy_file_range, falling back to sendfile. Both short-circuit in the
// kernel; neither proves integrity, so the caller re-checks the result.
func Copy(src, dst string, size int64) (Result, error) {
	srcFd, err := os.Open(src)
	if err != nil {
		return Result{}, err
	}
	defer srcFd.Close()

	dstFd, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return Result{}, err
	}
	defer dstFd.Close()

	// Advisory; not supported on all filesystems.
	_ = unix.Fallocate(int(dstFd.Fd()), 0, 0, size)

	result, err := copyFileRange(srcFd, dstFd, size)
	if err == nil {
		return result, nil
	}
	if !isFallbackErr(err) {
		return result, err
	}

	result, err = copySendfile(srcFd, dstFd, size)
	if err == nil {
		return result, nil
	}
	if isFallbackErr(err) {
		return Result{}, ErrUnsupported
	}
	return result, err
}

func copyFileRange(srcFd, dstFd *os.File, size int64) (Result, error) {
	var roff, woff int64
	remaining := size
	var total int64

	for remaining > 0 {
		n, err := unix.CopyFileRange(int(srcFd.Fd()), &roff, int(dstFd.Fd()), &woff, int(remaining), 0)
		if err != nil {
			return Result{BytesWritten: total, Method: CopyFileRange}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return Result{BytesWritten: total, Method: CopyFileRange}, nil
}

func copySendfile(srcFd, dstFd *os.File, size int64) (Result, error) {
	var offset int64
	remaining := size
	var total int64

	for remaining > 0 {
		n, err := unix.Sendfile(int(dstFd.Fd()), int(srcFd.Fd()), &offset, int(remaining))
		if err != nil {
			return Result{BytesWritten: total, Method: Sendfile}, err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
		total += int64(n)
	}

	return Result{BytesWritten: total, Method: Sendfile}, nil
}

// isFallbackErr reports whether err should trigger the next copy strategy.
func isFallbackErr(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP:
		return true
	}
	if e, ok := err.(*os.PathError); ok {
		return isFallbackErr(e.Err)
	}
	return false
}
