package engine

import "fmt"

// Kind classifies a transfer failure. The set is closed: everything the
// engine can report is one of these, with CopyFailed wrapping any
// lower-level I/O error not otherwise classified.
type Kind int

const (
	CopyFailed Kind = iota
	FileNotFound
	SourcePathInvalid
	DestinationPathInvalid
	DestinationNotWritable
	PermissionDenied
	ChecksumMismatch
	Cancelled
)

var kindNames = [...]string{
	CopyFailed:             "copy failed",
	FileNotFound:           "file not found",
	SourcePathInvalid:      "source path invalid",
	DestinationPathInvalid: "destination path invalid",
	DestinationNotWritable: "destination not writable",
	PermissionDenied:       "permission denied",
	ChecksumMismatch:       "checksum mismatch",
	Cancelled:              "cancelled",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is the engine's typed transfer error.
type Error struct {
	Kind   Kind
	Path   string
	Detail string
	Err    error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind, so callers can compare against the
// bare sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Path == "" && t.Err == nil
}

// Sentinels for errors.Is comparisons.
var (
	ErrCopyFailed             = &Error{Kind: CopyFailed}
	ErrFileNotFound           = &Error{Kind: FileNotFound}
	ErrSourcePathInvalid      = &Error{Kind: SourcePathInvalid}
	ErrDestinationPathInvalid = &Error{Kind: DestinationPathInvalid}
	ErrDestinationNotWritable = &Error{Kind: DestinationNotWritable}
	ErrPermissionDenied       = &Error{Kind: PermissionDenied}
	ErrChecksumMismatch       = &Error{Kind: ChecksumMismatch}
	ErrCancelled              = &Error{Kind: Cancelled}
)

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func copyFailedf(path, format string, args ...any) *Error {
	return &Error{Kind: CopyFailed, Path: path, Detail: fmt.Sprintf(format, args...)}
}
