//go:build !linux

package platform

// RingCopier is a no-op stub on non-Linux platforms.
type RingCopier struct{}

// NewRingCopier always returns (nil, nil) on non-Linux platforms.
func NewRingCopier(_ uint) (*RingCopier, error) {
	return nil, nil
}

func (c *RingCopier) Close() error { return nil }

func (c *RingCopier) Copy(_, _ string, _ int64) (Result, error) {
	return Result{}, ErrUnsupported
}

// KernelSupportsIOURing always returns false on non-Linux platforms.
func KernelSupportsIOURing() bool {
	return false
}
