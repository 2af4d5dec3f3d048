package mhl

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/kelgrand/offload/internal/digest"
)

// Parse reads a manifest from path. The comment and history blocks are
// optional; their absence is not an error.
func Parse(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a manifest from r.
func Read(r io.Reader) (*Manifest, error) {
	var doc xmlHashList
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m := &Manifest{
		Version:        doc.Version,
		CreatorName:    doc.Creator.Name,
		CreatorVersion: doc.Creator.Version,
		CreatedAt:      parseTime(doc.Creator.DateTime),
		Comment:        doc.Comment,
	}

	if doc.History != nil {
		for _, ref := range doc.History.Refs {
			m.History = append(m.History, HistoryRef{Path: ref.Path, SHA1: ref.Hash})
		}
	}

	for i, xh := range doc.Hashes {
		alg, sum, err := entryDigest(xh)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d (%s): %w", i, xh.File, err)
		}
		m.Entries = append(m.Entries, Entry{
			File:      xh.File,
			Directory: xh.Dir,
			Size:      xh.Size,
			Algorithm: alg,
			Digest:    sum,
			ModTime:   parseTime(xh.LastModificationDate),
		})
	}

	return m, nil
}

// entryDigest picks whichever algorithm element the entry carries.
func entryDigest(xh xmlHash) (digest.Algorithm, string, error) {
	switch {
	case xh.MD5 != "":
		return digest.MD5, xh.MD5, nil
	case xh.SHA1 != "":
		return digest.SHA1, xh.SHA1, nil
	case xh.XXH64 != "":
		return digest.XXH64, xh.XXH64, nil
	default:
		return 0, "", fmt.Errorf("no digest element")
	}
}
