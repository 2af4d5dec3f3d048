package volume

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem types with no user-visible storage behind them.
var virtualFSTypes = map[string]bool{
	"autofs": true, "devfs": true, "nullfs": true, "lifs": true,
}

// listPlatform merges the Getfsstat mount listing with per-volume
// diskutil metadata. diskutil failing for a volume just leaves its
// device fields empty.
func (r *Registry) listPlatform(ctx context.Context) []Volume {
	n, err := unix.Getfsstat(nil, unix.MNT_NOWAIT)
	if err != nil {
		r.log.Warn("getfsstat failed", "error", err)
		return nil
	}
	stats := make([]unix.Statfs_t, n)
	if _, err := unix.Getfsstat(stats, unix.MNT_NOWAIT); err != nil {
		r.log.Warn("getfsstat failed", "error", err)
		return nil
	}

	var vols []Volume
	for _, st := range stats {
		if ctx.Err() != nil {
			return vols
		}

		fsType := cString(st.Fstypename[:])
		if virtualFSTypes[fsType] {
			continue
		}

		mount := cString(st.Mntonname[:])
		v := Volume{
			MountPath:  mount,
			TotalBytes: st.Blocks * uint64(st.Bsize),
			FreeBytes:  st.Bavail * uint64(st.Bsize),
		}

		if info, err := diskutilInfo(ctx, mount); err == nil {
			v.Name = info.volumeName
			v.DevicePath = info.deviceNode
			v.Removable = info.removable
		} else {
			r.log.Debug("diskutil info failed", "mount", mount, "error", err)
		}

		vols = append(vols, v)
	}
	return vols
}

type diskInfo struct {
	deviceNode string
	volumeName string
	removable  bool
}

func diskutilInfo(ctx context.Context, mount string) (diskInfo, error) {
	out, err := exec.CommandContext(ctx, "diskutil", "info", mount).Output()
	if err != nil {
		return diskInfo{}, err
	}
	return parseDiskutilInfo(string(out)), nil
}

// parseDiskutilInfo scans `diskutil info` output by line prefix. Unknown
// lines are ignored so format drift across macOS releases is harmless.
func parseDiskutilInfo(out string) diskInfo {
	var info diskInfo
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Device Node":
			info.deviceNode = value
		case "Volume Name":
			info.volumeName = value
		case "Removable Media":
			info.removable = info.removable || value == "Removable" || value == "Yes"
		case "Ejectable":
			info.removable = info.removable || value == "Yes"
		}
	}
	return info
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

func ejectCommand(v Volume) (string, []string) {
	target := v.DevicePath
	if target == "" {
		target = v.MountPath
	}
	return "diskutil", []string{"eject", target}
}
