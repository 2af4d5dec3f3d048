package engine

import (
	"sync"
	"time"
)

// State is a transfer task's lifecycle position.
type State int

const (
	StateNotStarted State = iota
	StatePreparing
	StateCopying
	StateVerifying
	StatePaused
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateNotStarted: "not started",
	StatePreparing:  "preparing",
	StateCopying:    "copying",
	StateVerifying:  "verifying",
	StatePaused:     "paused",
	StateCompleted:  "completed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// TaskKind distinguishes single-file from directory transfers.
type TaskKind int

const (
	KindFile TaskKind = iota
	KindDirectory
)

// FileError records one failed file inside a directory transfer.
type FileError struct {
	Path string
	Err  error
}

// Task is one transfer: a single file or a whole directory tree. The
// engine owns it for the duration of Run; observers read Snapshot and
// may call Cancel, Pause, and Resume.
type Task struct {
	Kind TaskKind
	Src  string
	Dst  string

	mu          sync.Mutex
	cond        *sync.Cond // broadcast on pause/resume/cancel
	state       State
	resumeTo    State // state to return to when resumed
	cancelled   bool
	bytesDone   int64
	bytesTotal  int64
	filesDone   int
	filesTotal  int
	startTime   time.Time
	endTime     time.Time
	lastErr     error
	failedFiles []FileError
	skipped     []string
}

// Snapshot is a read-only view of a Task for the observing layer.
type Snapshot struct {
	Kind             TaskKind
	Src              string
	Dst              string
	State            State
	BytesTransferred int64
	TotalBytes       int64
	CompletedFiles   int
	TotalFiles       int
	StartTime        time.Time
	EndTime          time.Time
	Err              error
	FailedFiles      []FileError
	SkippedItems     []string
}

// NewFileTask describes a single-file transfer.
func NewFileTask(src, dst string) *Task {
	return newTask(KindFile, src, dst)
}

// NewDirectoryTask describes a directory-tree transfer.
func NewDirectoryTask(src, dst string) *Task {
	return newTask(KindDirectory, src, dst)
}

func newTask(kind TaskKind, src, dst string) *Task {
	t := &Task{Kind: kind, Src: src, Dst: dst, state: StateNotStarted}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Snapshot returns a consistent copy of the task's observable state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Kind:             t.Kind,
		Src:              t.Src,
		Dst:              t.Dst,
		State:            t.state,
		BytesTransferred: t.bytesDone,
		TotalBytes:       t.bytesTotal,
		CompletedFiles:   t.filesDone,
		TotalFiles:       t.filesTotal,
		StartTime:        t.startTime,
		EndTime:          t.endTime,
		Err:              t.lastErr,
		FailedFiles:      append([]FileError(nil), t.failedFiles...),
		SkippedItems:     append([]string(nil), t.skipped...),
	}
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cancel requests cooperative cancellation. Workers observe it at the
// next file or chunk boundary; a paused task is woken so it can stop.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.cond.Broadcast()
	t.mu.Unlock()
}

// Cancelled reports whether cancellation was requested.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Pause suspends an active transfer. Only Copying and Verifying can
// pause; the task resumes to the same state.
func (t *Task) Pause() {
	t.mu.Lock()
	if t.state == StateCopying || t.state == StateVerifying {
		t.resumeTo = t.state
		t.state = StatePaused
	}
	t.mu.Unlock()
}

// Resume returns a paused transfer to the state it paused from.
func (t *Task) Resume() {
	t.mu.Lock()
	if t.state == StatePaused {
		t.state = t.resumeTo
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

// gate blocks while the task is paused and returns ErrCancelled once
// cancellation has been observed. Workers call it at every file and
// chunk boundary.
func (t *Task) gate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.state == StatePaused && !t.cancelled {
		t.cond.Wait()
	}
	if t.cancelled {
		return newError(Cancelled, t.Src, nil)
	}
	return nil
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Task) start() {
	t.mu.Lock()
	t.state = StatePreparing
	t.startTime = time.Now()
	t.mu.Unlock()
}

func (t *Task) complete() {
	t.mu.Lock()
	t.state = StateCompleted
	t.endTime = time.Now()
	t.mu.Unlock()
}

func (t *Task) fail(err error) error {
	t.mu.Lock()
	t.state = StateFailed
	t.endTime = time.Now()
	t.lastErr = err
	t.mu.Unlock()
	return err
}

func (t *Task) setTotals(files int, bytes int64) {
	t.mu.Lock()
	t.filesTotal = files
	t.bytesTotal = bytes
	t.mu.Unlock()
}

// progress adds a byte delta and returns the new aggregate alongside the
// total. Every returned aggregate is a unique partial sum.
func (t *Task) progress(n int64) (agg, total int64) {
	t.mu.Lock()
	t.bytesDone += n
	agg, total = t.bytesDone, t.bytesTotal
	t.mu.Unlock()
	return agg, total
}

func (t *Task) addCompletedFile() {
	t.mu.Lock()
	t.filesDone++
	t.mu.Unlock()
}

func (t *Task) addFailedFile(path string, err error) {
	t.mu.Lock()
	t.failedFiles = append(t.failedFiles, FileError{Path: path, Err: err})
	t.mu.Unlock()
}

func (t *Task) addSkipped(path string) {
	t.mu.Lock()
	t.skipped = append(t.skipped, path)
	t.mu.Unlock()
}
