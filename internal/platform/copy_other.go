//go:build !linux && !darwin

package platform

// Copy has no native primitive on this platform; the engine's portable
// strategies handle everything.
func Copy(_, _ string, _ int64) (Result, error) {
	return Result{}, ErrUnsupported
}
