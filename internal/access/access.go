// Package access abstracts the permission mechanism that must approve a
// path before the engine touches it. On a sandboxed host this is backed
// by the platform's security-scoped grants; the default implementation
// probes the filesystem directly. Grants are never assumed to persist
// across process restarts — callers re-query each session.
package access

import (
	"os"
	"path/filepath"
)

// Granter answers whether the process may read and write a path, and can
// request that access interactively where the host supports it.
type Granter interface {
	// HasAccess reports whether the path is currently readable (and, for
	// directories, writable). Implementations may probe the filesystem,
	// so this is a capability check with side effects, not a pure query.
	HasAccess(path string) bool

	// RequestAccess attempts to obtain access to the path and reports
	// whether it was granted. Callers must re-check HasAccess afterward.
	RequestAccess(path string) bool
}

// probeName is the throwaway file created when probing directory writability.
const probeName = ".offload-probe"

// ProbeGranter verifies access by exercising it: directories are listed
// and probed with a create+delete of a zero-byte file, regular files are
// opened and read one byte. There is no interactive grant flow, so
// RequestAccess is just a re-probe.
type ProbeGranter struct{}

func (ProbeGranter) HasAccess(path string) bool {
	return Probe(path)
}

func (ProbeGranter) RequestAccess(path string) bool {
	return Probe(path)
}

// Probe checks read/write capability for path. It mutates directories by
// creating and removing a probe file.
func Probe(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	if !info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return false
		}
		defer f.Close()

		var b [1]byte
		_, err = f.Read(b[:])
		// Zero-byte files hit EOF immediately; that still proves readability.
		return err == nil || info.Size() == 0
	}

	if _, err := os.ReadDir(path); err != nil {
		return false
	}

	probe := filepath.Join(path, probeName)
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	_ = os.Remove(probe)
	return true
}

// Static is a fixed-answer Granter for tests and non-interactive callers.
type Static struct {
	Granted map[string]bool
	Default bool
}

func (s Static) HasAccess(path string) bool {
	if v, ok := s.Granted[path]; ok {
		return v
	}
	return s.Default
}

func (s Static) RequestAccess(path string) bool {
	return s.HasAccess(path)
}
