//go:build darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// Copy clones src to dst via clonefile(2), a constant-time CoW copy on
// APFS. Cross-volume copies (the normal offload case) report
// ErrUnsupported and the engine moves to the next strategy.
func Copy(src, dst string, size int64) (Result, error) {
	err := unix.Clonefile(src, dst, 0)
	if err == nil {
		return Result{BytesWritten: size, Method: Clonefile}, nil
	}
	if isFallbackCloneErr(err) {
		return Result{}, ErrUnsupported
	}
	return Result{}, err
}

func isFallbackCloneErr(err error) bool {
	switch err {
	case unix.ENOTSUP, unix.EXDEV, unix.EEXIST:
		return true
	}
	return false
}
