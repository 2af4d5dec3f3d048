//go:build !linux && !darwin

package volume

import "context"

func (r *Registry) listPlatform(ctx context.Context) []Volume { return nil }

func ejectCommand(v Volume) (string, []string) { return "", nil }
