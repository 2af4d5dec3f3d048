// Package event defines the progress notifications emitted by the engine
// and the volume registry. The CLI presenter is their only consumer;
// delivery is best-effort and never blocks a worker.
package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileStarted
	FileProgress
	FileCompleted
	FileFailed
	FileSkipped
	VerifyStarted
	VerifyOK
	VerifyFailed
	ManifestWritten
	VolumeAttached
	VolumeDetached
)

var typeNames = [...]string{
	ScanStarted:     "ScanStarted",
	ScanComplete:    "ScanComplete",
	FileStarted:     "FileStarted",
	FileProgress:    "FileProgress",
	FileCompleted:   "FileCompleted",
	FileFailed:      "FileFailed",
	FileSkipped:     "FileSkipped",
	VerifyStarted:   "VerifyStarted",
	VerifyOK:        "VerifyOK",
	VerifyFailed:    "VerifyFailed",
	ManifestWritten: "ManifestWritten",
	VolumeAttached:  "VolumeAttached",
	VolumeDetached:  "VolumeDetached",
}

func (t Type) String() string {
	if int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single notification from the engine or volume registry.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // relative path, or mount path for volume events
	Bytes     int64  // bytes so far (FileProgress) or file size
	Total     int64  // total files (ScanComplete)
	TotalSize int64  // total bytes (ScanComplete)
	Error     error
}

// Emit sends e on ch without blocking; nil channels and full buffers
// drop the event.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
