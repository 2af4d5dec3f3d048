package mhl

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kelgrand/offload/internal/digest"
)

// timeLayout is the timestamp format used throughout a manifest.
const timeLayout = "2006-01-02T15:04:05Z"

// Mirror structs for the on-disk vocabulary. The per-entry digest lives
// under an element named after its algorithm, so the hash block carries
// one optional field per supported tag.
type xmlHashList struct {
	XMLName xml.Name       `xml:"hashlist"`
	Version string         `xml:"version,attr"`
	Creator xmlCreatorInfo `xml:"creatorinfo"`
	Comment string         `xml:"comment,omitempty"`
	History *xmlHistory    `xml:"history,omitempty"`
	Hashes  []xmlHash      `xml:"hash"`
}

type xmlCreatorInfo struct {
	Name     string `xml:"name"`
	Version  string `xml:"version,omitempty"`
	DateTime string `xml:"datetime"`
}

type xmlHistory struct {
	Refs []xmlHistoryRef `xml:"hashlist"`
}

type xmlHistoryRef struct {
	Path string `xml:"path"`
	Hash string `xml:"hash"`
}

type xmlHash struct {
	File                 string `xml:"file"`
	Dir                  string `xml:"dir,omitempty"`
	Size                 int64  `xml:"size"`
	MD5                  string `xml:"md5,omitempty"`
	SHA1                 string `xml:"sha1,omitempty"`
	XXH64                string `xml:"xxh64,omitempty"`
	LastModificationDate string `xml:"lastmodificationdate"`
}

// Write serializes the manifest to path. Refuses an empty entry list.
func Write(m *Manifest, path string) error {
	if len(m.Entries) == 0 {
		return ErrNoEntries
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}

	if err := WriteTo(m, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// WriteTo serializes the manifest as indented, entity-escaped markup.
func WriteTo(m *Manifest, w io.Writer) error {
	if len(m.Entries) == 0 {
		return ErrNoEntries
	}

	doc := xmlHashList{
		Version: m.Version,
		Creator: xmlCreatorInfo{
			Name:     m.CreatorName,
			Version:  m.CreatorVersion,
			DateTime: m.CreatedAt.UTC().Format(timeLayout),
		},
		Comment: m.Comment,
	}
	if doc.Version == "" {
		doc.Version = FormatVersion
	}

	if len(m.History) > 0 {
		h := &xmlHistory{}
		for _, ref := range m.History {
			h.Refs = append(h.Refs, xmlHistoryRef{Path: ref.Path, Hash: ref.SHA1})
		}
		doc.History = h
	}

	for _, e := range m.Entries {
		xh := xmlHash{
			File:                 e.File,
			Dir:                  e.Directory,
			Size:                 e.Size,
			LastModificationDate: e.ModTime.UTC().Format(timeLayout),
		}
		switch e.Algorithm {
		case digest.MD5:
			xh.MD5 = e.Digest
		case digest.SHA1:
			xh.SHA1 = e.Digest
		case digest.XXH64:
			xh.XXH64 = e.Digest
		default:
			return fmt.Errorf("unsupported digest algorithm %q", e.Algorithm)
		}
		doc.Hashes = append(doc.Hashes, xh)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
