package volume

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem types that never hold user media.
var virtualFSTypes = map[string]bool{
	"autofs": true, "binfmt_misc": true, "bpf": true, "cgroup": true,
	"cgroup2": true, "configfs": true, "debugfs": true, "devpts": true,
	"devtmpfs": true, "efivarfs": true, "fusectl": true, "hugetlbfs": true,
	"mqueue": true, "nsfs": true, "overlay": true, "proc": true,
	"pstore": true, "ramfs": true, "rpc_pipefs": true, "securityfs": true,
	"squashfs": true, "sysfs": true, "tmpfs": true, "tracefs": true,
}

// listPlatform merges the mount table with the /sys/block removable walk.
func (r *Registry) listPlatform(ctx context.Context) []Volume {
	removable := sysBlockRemovables()

	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		r.log.Warn("mount table unreadable", "error", err)
		return nil
	}

	var vols []Volume
	for _, m := range parseMountTable(string(data)) {
		if ctx.Err() != nil {
			return vols
		}

		v := Volume{
			MountPath:  m.mountPath,
			DevicePath: m.device,
			Removable:  removable[baseDisk(m.device)],
		}

		var st unix.Statfs_t
		if err := unix.Statfs(m.mountPath, &st); err == nil {
			v.TotalBytes = st.Blocks * uint64(st.Bsize)
			v.FreeBytes = st.Bavail * uint64(st.Bsize)
		}

		vols = append(vols, v)
	}
	return vols
}

type mountEntry struct {
	device    string
	mountPath string
	fsType    string
}

// parseMountTable decodes /proc/self/mounts content: whitespace-separated
// fields with octal escapes in paths. Virtual filesystems and devices
// outside /dev are dropped.
func parseMountTable(data string) []mountEntry {
	var entries []mountEntry
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		m := mountEntry{
			device:    unescapeMountField(fields[0]),
			mountPath: unescapeMountField(fields[1]),
			fsType:    fields[2],
		}
		if virtualFSTypes[m.fsType] || !strings.HasPrefix(m.device, "/dev/") {
			continue
		}
		entries = append(entries, m)
	}
	return entries
}

// unescapeMountField resolves the \ooo octal escapes the kernel uses for
// spaces, tabs, newlines, and backslashes in mount paths.
func unescapeMountField(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) && isOctal(s[i+1]) && isOctal(s[i+2]) && isOctal(s[i+3]) {
			sb.WriteByte((s[i+1]-'0')<<6 | (s[i+2]-'0')<<3 | (s[i+3] - '0'))
			i += 3
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isOctal(b byte) bool { return b >= '0' && b <= '7' }

// sysBlockRemovables walks /sys/block and reports which disks advertise
// themselves as removable.
func sysBlockRemovables() map[string]bool {
	out := make(map[string]bool)
	entries, err := os.ReadDir("/sys/block")
	if err != nil {
		return out
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join("/sys/block", e.Name(), "removable"))
		if err != nil {
			continue
		}
		out[e.Name()] = strings.TrimSpace(string(data)) == "1"
	}
	return out
}

// baseDisk strips the partition suffix from a device path: /dev/sdb1 ->
// sdb, /dev/nvme0n1p2 -> nvme0n1, /dev/mmcblk0p1 -> mmcblk0.
func baseDisk(device string) string {
	name := strings.TrimPrefix(device, "/dev/")
	if i := strings.LastIndex(name, "p"); i > 0 && strings.ContainsAny(name[:i], "0123456789") && allDigits(name[i+1:]) {
		return name[:i]
	}
	return strings.TrimRight(name, "0123456789")
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func ejectCommand(v Volume) (string, []string) {
	dev := v.DevicePath
	if dev == "" {
		dev = v.MountPath
	}
	return "udisksctl", []string{"unmount", "-b", dev}
}
