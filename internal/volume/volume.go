// Package volume enumerates mounted storage volumes, watches for
// attach/detach, and ejects removable media. Enumeration is best-effort:
// it merges several independent OS sources and a failing source shrinks
// the list instead of failing the call.
package volume

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kelgrand/offload/internal/access"
)

// Volume is one mounted storage volume.
type Volume struct {
	ID            string // device path when known, else mount path
	Name          string
	MountPath     string
	DevicePath    string
	Removable     bool
	TotalBytes    uint64
	FreeBytes     uint64
	AccessGranted bool
}

// EventType distinguishes watcher notifications.
type EventType int

const (
	Attached EventType = iota
	Detached
)

func (t EventType) String() string {
	if t == Attached {
		return "attached"
	}
	return "detached"
}

// Event is one volume change notification.
type Event struct {
	Type   EventType
	Volume Volume
}

// pollInterval is how often the watcher re-reads the mount table.
const pollInterval = 2 * time.Second

// Registry lists volumes and notifies subscribers of changes.
type Registry struct {
	granter access.Granter
	log     *slog.Logger

	mu      sync.Mutex
	subs    map[int]func(Event)
	nextID  int
	stop    chan struct{}
	stopped bool
}

// NewRegistry builds a registry. Both arguments may be nil; defaults are
// a capability-probe granter and the default logger.
func NewRegistry(granter access.Granter, log *slog.Logger) *Registry {
	if granter == nil {
		granter = access.ProbeGranter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		granter: granter,
		log:     log,
		subs:    make(map[int]func(Event)),
	}
}

// List returns the currently mounted volumes. Enumeration merges the
// mounted-filesystem table with a device-registry walk, de-duplicates by
// mount path, and drops partition-table pseudo-volumes. It never fails:
// each source failing independently just shrinks the result.
//
// AccessGranted is computed with a capability probe that creates and
// deletes a throwaway file in directory volumes; it is not a pure query.
func (r *Registry) List(ctx context.Context) []Volume {
	out := r.enumerate(ctx)
	for i := range out {
		out[i].AccessGranted = r.granter.HasAccess(out[i].MountPath)
	}
	return out
}

// enumerate merges, de-duplicates, and filters the platform sources
// without touching the granter. The watcher polls through here so a
// mutating capability probe never runs on a timer.
func (r *Registry) enumerate(ctx context.Context) []Volume {
	vols := r.listPlatform(ctx)

	seen := make(map[string]bool, len(vols))
	out := vols[:0]
	for _, v := range vols {
		if seen[v.MountPath] || pseudoVolume(v.Name) {
			continue
		}
		seen[v.MountPath] = true

		if v.ID == "" {
			if v.DevicePath != "" {
				v.ID = v.DevicePath
			} else {
				v.ID = v.MountPath
			}
		}
		if v.Name == "" {
			v.Name = filepath.Base(v.MountPath)
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MountPath < out[j].MountPath })
	return out
}

// Subscribe registers a change callback and starts the watcher on first
// use. The returned id cancels the subscription via Unsubscribe.
// Delivery is asynchronous and best-effort.
func (r *Registry) Subscribe(fn func(Event)) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	if r.stop == nil && !r.stopped {
		r.stop = make(chan struct{})
		go r.watch(r.stop)
	}
	return id
}

// Unsubscribe removes a subscription.
func (r *Registry) Unsubscribe(id int) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Close stops the watcher. Pending async deliveries may still arrive.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.stopped = true
	r.mu.Unlock()
}

func (r *Registry) watch(stop chan struct{}) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	prev := r.snapshotMounts()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		cur := r.snapshotMounts()
		for path, vol := range cur {
			if _, ok := prev[path]; !ok {
				r.notify(Event{Type: Attached, Volume: vol})
			}
		}
		for path, vol := range prev {
			if _, ok := cur[path]; !ok {
				r.notify(Event{Type: Detached, Volume: vol})
			}
		}
		prev = cur
	}
}

// snapshotMounts builds the watcher's diff set. Event volumes carry
// AccessGranted unset; interested callers probe on demand.
func (r *Registry) snapshotMounts() map[string]Volume {
	m := make(map[string]Volume)
	for _, v := range r.enumerate(context.Background()) {
		m[v.MountPath] = v
	}
	return m
}

func (r *Registry) notify(ev Event) {
	r.mu.Lock()
	fns := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	r.log.Debug("volume change", "type", ev.Type, "mount", ev.Volume.MountPath)
	for _, fn := range fns {
		go fn(ev)
	}
}

// Eject unmounts and ejects the volume via the platform utility. A
// non-zero exit surfaces the tool's combined output as the error detail.
func (r *Registry) Eject(ctx context.Context, v Volume) error {
	name, args := ejectCommand(v)
	if name == "" {
		return fmt.Errorf("eject is not supported on this platform")
	}

	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("eject %s: %w: %s", v.MountPath, err, strings.TrimSpace(string(out)))
	}
	r.log.Info("ejected volume", "mount", v.MountPath)
	return nil
}

// pseudoVolume reports whether the name belongs to a partition-table or
// system volume that should never be offered as a source or destination.
var pseudoNames = map[string]bool{
	"EFI":      true,
	"SYSTEM":   true,
	"Recovery": true,
	"Preboot":  true,
	"Update":   true,
	"VM":       true,
	"boot":     true,
	"efi":      true,
}

func pseudoVolume(name string) bool {
	return pseudoNames[name]
}
