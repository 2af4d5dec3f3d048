// Package mhl writes and verifies media hash-list manifests: portable
// UTF-8 markup files recording per-file digests, sizes, and modification
// times so a transfer can be re-proven long after the copy finished.
// Manifests may chain to prior manifests through a SHA-1 of their raw
// bytes, forming an append-only audit history.
package mhl

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelgrand/offload/internal/digest"
)

// FormatVersion is emitted as the hashlist version attribute.
const FormatVersion = "1.1"

// ErrNoEntries is returned when generation would produce an empty
// manifest. An empty manifest proves nothing and is never written.
var ErrNoEntries = errors.New("mhl: no entries to write")

// Entry is one file's record in a manifest. Directory holds the file's
// directory relative to the manifest's own location, in slash form;
// empty means the file sits beside the manifest.
type Entry struct {
	File      string
	Directory string
	Size      int64
	Algorithm digest.Algorithm
	Digest    string // lowercase hex
	ModTime   time.Time
}

// HistoryRef links a manifest to a prior one by file name and a SHA-1
// of the prior manifest's bytes.
type HistoryRef struct {
	Path string
	SHA1 string
}

// Manifest is a parsed or about-to-be-written hash list.
type Manifest struct {
	Version        string
	CreatorName    string
	CreatorVersion string
	CreatedAt      time.Time
	Comment        string
	History        []HistoryRef
	Entries        []Entry
}

// Options configures Generate.
type Options struct {
	Algorithm      digest.Algorithm
	Comment        string
	PriorManifests []string // paths of earlier manifests to chain
	CreatorName    string
	CreatorVersion string
}

// Generate hashes every file in files and writes a manifest to outPath.
// File paths must be regular files; any hashing failure aborts the
// whole manifest (already-copied data is untouched). The returned
// Manifest is what was written.
func Generate(ctx context.Context, files []string, outPath string, opts Options) (*Manifest, error) {
	if len(files) == 0 {
		return nil, ErrNoEntries
	}
	if opts.CreatorName == "" {
		opts.CreatorName = "offload"
	}
	if !manifestAlgorithm(opts.Algorithm) {
		return nil, fmt.Errorf("mhl: algorithm %s has no manifest element", opts.Algorithm)
	}

	m := &Manifest{
		Version:        FormatVersion,
		CreatorName:    opts.CreatorName,
		CreatorVersion: opts.CreatorVersion,
		CreatedAt:      time.Now().UTC(),
		Comment:        opts.Comment,
	}

	for _, prior := range opts.PriorManifests {
		sum, err := fileSHA1(prior)
		if err != nil {
			return nil, fmt.Errorf("hash prior manifest %s: %w", prior, err)
		}
		m.History = append(m.History, HistoryRef{
			Path: filepath.Base(prior),
			SHA1: sum,
		})
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("hash %s: is a directory", path)
		}

		sum, err := digest.File(ctx, path, opts.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", path, err)
		}

		m.Entries = append(m.Entries, Entry{
			File:      filepath.Base(path),
			Directory: entryDirectory(filepath.Dir(outPath), path),
			Size:      info.Size(),
			Algorithm: opts.Algorithm,
			Digest:    sum,
			ModTime:   info.ModTime().UTC(),
		})
	}

	if len(m.Entries) == 0 {
		return nil, ErrNoEntries
	}

	if err := Write(m, outPath); err != nil {
		return nil, err
	}
	return m, nil
}

// manifestAlgorithm reports whether the algorithm has an element in the
// interchange vocabulary. blake3 is supported for copy verification but
// has no manifest tag.
func manifestAlgorithm(a digest.Algorithm) bool {
	switch a {
	case digest.MD5, digest.SHA1, digest.XXH64:
		return true
	default:
		return false
	}
}

// entryDirectory returns the file's directory relative to the manifest's
// directory, in slash form, so a verifier can re-resolve the file from
// wherever the manifest ends up. A file outside the manifest's tree keeps
// only its parent directory's name; verifying such an entry needs an
// explicit base.
func entryDirectory(outDir, path string) string {
	rel, err := filepath.Rel(outDir, filepath.Dir(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(filepath.Dir(path))
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

func fileSHA1(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
