// Package platform provides the OS-native whole-file copy primitives used
// as the engine's fastest copy strategy. When no primitive applies, Copy
// reports ErrUnsupported and the engine falls back to portable strategies.
package platform

import "errors"

// ErrUnsupported means no native copy primitive is available for this
// src/dst pair (cross-device, unsupported filesystem, or old kernel).
var ErrUnsupported = errors.New("native copy not supported")

// Method identifies which primitive performed a copy.
type Method int

const (
	None          Method = iota
	CopyFileRange        // Linux copy_file_range(2)
	Sendfile             // Linux sendfile(2)
	IOURing              // Linux io_uring pread/pwrite
	Clonefile            // macOS clonefile(2)
)

func (m Method) String() string {
	switch m {
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case IOURing:
		return "io_uring"
	case Clonefile:
		return "clonefile"
	default:
		return "none"
	}
}

// Result reports the outcome of a native copy.
type Result struct {
	BytesWritten int64
	Method       Method
}
