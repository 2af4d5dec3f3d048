// Package mediafilter decides which files on a camera card are worth
// offloading. Hidden files, firmware housekeeping files, and anything
// that is not a recognized media container are skipped.
package mediafilter

import (
	"path/filepath"
	"strings"
)

// mediaExtensions is the allow-list of image, raw, audio, and video
// container extensions (lowercase, without dot).
var mediaExtensions = map[string]struct{}{
	// stills
	"jpg": {}, "jpeg": {}, "png": {}, "tif": {}, "tiff": {}, "heic": {}, "heif": {},
	// camera raw
	"dng": {}, "cr2": {}, "cr3": {}, "crm": {}, "nef": {}, "nrw": {}, "arw": {},
	"raf": {}, "orf": {}, "rw2": {}, "raw": {}, "srw": {}, "pef": {}, "gpr": {},
	// cinema raw
	"braw": {}, "r3d": {}, "ari": {}, "arx": {}, "cine": {},
	// video containers
	"mov": {}, "mp4": {}, "m4v": {}, "mxf": {}, "avi": {}, "mts": {}, "m2ts": {},
	"mpg": {}, "mpeg": {}, "insv": {}, "360": {},
	// audio
	"wav": {}, "bwf": {}, "aif": {}, "aiff": {}, "mp3": {}, "flac": {},
	// sidecars that travel with the media
	"xml": {}, "xmp": {}, "cdl": {}, "ale": {}, "lut": {}, "cube": {},
}

// housekeepingNames is the deny-list of camera-firmware bookkeeping files
// that carry no media data. Matched case-insensitively by exact name.
var housekeepingNames = map[string]struct{}{
	"thumbs.db":    {},
	"desktop.ini":  {},
	"mediapro.xml": {},
	"sonycard.ind": {},
	"avin0001.inp": {},
	"avin0001.bnp": {},
	"avin0001.int": {},
	"movieobj.bdm": {},
	"index.bdm":    {},
	"memory.dat":   {},
	"status.bin":   {},
	"sony.dat":     {},
	"fseventsd-uuid": {},
}

// Filter is an extension allow-list plus the fixed deny rules. The zero
// value skips everything; use Default or New.
type Filter struct {
	exts map[string]struct{}
}

// Default returns a Filter covering the built-in media extensions.
func Default() *Filter {
	return &Filter{exts: mediaExtensions}
}

// New returns the default Filter extended with extra extensions
// (with or without leading dot, any case).
func New(extra []string) *Filter {
	if len(extra) == 0 {
		return Default()
	}
	exts := make(map[string]struct{}, len(mediaExtensions)+len(extra))
	for k := range mediaExtensions {
		exts[k] = struct{}{}
	}
	for _, e := range extra {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts[e] = struct{}{}
		}
	}
	return &Filter{exts: exts}
}

// EligibleFile reports whether a file with the given base name should be
// offloaded.
func (f *Filter) EligibleFile(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if _, denied := housekeepingNames[strings.ToLower(name)]; denied {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	_, ok := f.exts[ext]
	return ok
}

// SkipDir reports whether a directory with the given base name should be
// pruned from the scan entirely.
func (f *Filter) SkipDir(name string) bool {
	return strings.HasPrefix(name, ".")
}
