// Package digest selects and runs the checksum algorithms used for copy
// verification and manifest entries.
package digest

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/kelgrand/offload/internal/xxh64"
)

// Algorithm identifies a checksum algorithm.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
	XXH64
	BLAKE3
)

// fileBufferSize bounds memory while hashing arbitrarily large files.
const fileBufferSize = 1 << 20 // 1 MiB

// Tag returns the manifest element name for the algorithm.
func (a Algorithm) Tag() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case XXH64:
		return "xxh64"
	case BLAKE3:
		return "blake3"
	default:
		return "unknown"
	}
}

func (a Algorithm) String() string { return a.Tag() }

// Parse maps a tag name back to its Algorithm.
func Parse(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "md5":
		return MD5, nil
	case "sha1", "sha-1":
		return SHA1, nil
	case "xxh64", "xxhash64":
		return XXH64, nil
	case "blake3":
		return BLAKE3, nil
	default:
		return 0, fmt.Errorf("unknown digest algorithm %q", s)
	}
}

// New returns a fresh hash state for the algorithm.
func (a Algorithm) New() hash.Hash {
	switch a {
	case MD5:
		return md5.New()
	case SHA1:
		return sha1.New()
	case XXH64:
		return xxh64.New(0)
	case BLAKE3:
		return blake3.New()
	default:
		panic(fmt.Sprintf("digest: invalid algorithm %d", a))
	}
}

// Sum computes the lowercase hex digest of b.
func Sum(b []byte, a Algorithm) string {
	h := a.New()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// File computes the lowercase hex digest of the file at path, reading in
// fixed-size chunks. The context is checked between chunks so large files
// do not delay cancellation.
func File(ctx context.Context, path string, a Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := a.New()
	buf := make([]byte, fileBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
