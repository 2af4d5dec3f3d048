package mhl

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kelgrand/offload/internal/digest"
)

// VerificationResult reports a manifest check. Missing files neither
// fail nor satisfy the check: Success requires at least one verified
// entry and zero invalid ones.
type VerificationResult struct {
	Verified []string
	Missing  []string
	Invalid  []string
}

// Success reports whether the check proved anything and nothing
// contradicted it.
func (r *VerificationResult) Success() bool {
	return len(r.Verified) > 0 && len(r.Invalid) == 0
}

// Verify parses the manifest at manifestPath and checks every entry
// against the files on disk. Entries resolve under basePath when given,
// otherwise relative to the manifest's own directory. Digests compare
// case-insensitively with the algorithm recorded per entry.
func Verify(ctx context.Context, manifestPath, basePath string) (*VerificationResult, error) {
	m, err := Parse(manifestPath)
	if err != nil {
		return nil, err
	}

	base := basePath
	if base == "" {
		base = filepath.Dir(manifestPath)
	}

	result := &VerificationResult{}
	for _, e := range m.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(base, filepath.FromSlash(e.Directory), e.File)
		if _, err := os.Stat(path); err != nil {
			// Manifests from other writers may record a directory the
			// base cannot re-resolve; a file sitting beside the manifest
			// still counts.
			alt := filepath.Join(base, e.File)
			if _, aerr := os.Stat(alt); aerr != nil || alt == path {
				result.Missing = append(result.Missing, path)
				continue
			}
			path = alt
		}

		sum, err := digest.File(ctx, path, e.Algorithm)
		if err != nil {
			result.Invalid = append(result.Invalid, path)
			continue
		}
		if digest.Equal(sum, e.Digest) {
			result.Verified = append(result.Verified, path)
		} else {
			result.Invalid = append(result.Invalid, path)
		}
	}

	return result, nil
}
