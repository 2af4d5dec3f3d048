package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMounts = `proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
/dev/nvme0n1p2 / ext4 rw,relatime 0 0
/dev/nvme0n1p1 /boot/efi vfat rw,relatime 0 0
tmpfs /run tmpfs rw,nosuid,nodev 0 0
/dev/sdb1 /media/user/SONY\040A7IV exfat rw,nosuid,nodev,relatime 0 0
/dev/mmcblk0p1 /media/user/LUMIX vfat rw,nosuid,nodev 0 0
overlay /var/lib/docker/overlay2/x/merged overlay rw,relatime 0 0
`

func TestParseMountTable(t *testing.T) {
	entries := parseMountTable(sampleMounts)
	require.Len(t, entries, 4, "virtual filesystems and non-device mounts are dropped")

	assert.Equal(t, "/dev/nvme0n1p2", entries[0].device)
	assert.Equal(t, "/", entries[0].mountPath)
	assert.Equal(t, "ext4", entries[0].fsType)

	assert.Equal(t, "/media/user/SONY A7IV", entries[2].mountPath, "octal escapes decode")
	assert.Equal(t, "exfat", entries[2].fsType)

	assert.Equal(t, "/dev/mmcblk0p1", entries[3].device)
}

func TestParseMountTableMalformedLines(t *testing.T) {
	entries := parseMountTable("garbage\n/dev/sda1\n\n/dev/sda1 /mnt ext4 rw 0 0\n")
	require.Len(t, entries, 1)
	assert.Equal(t, "/mnt", entries[0].mountPath)
}

func TestUnescapeMountField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/plain/path", "/plain/path"},
		{`/with\040space`, "/with space"},
		{`/tab\011here`, "/tab\there"},
		{`/back\134slash`, `/back\slash`},
		{`/trailing\04`, `/trailing\04`}, // incomplete escape passes through
		{`\040\040`, "  "},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unescapeMountField(tt.in), tt.in)
	}
}

func TestBaseDisk(t *testing.T) {
	tests := []struct {
		device, want string
	}{
		{"/dev/sdb1", "sdb"},
		{"/dev/sdb", "sdb"},
		{"/dev/nvme0n1p2", "nvme0n1"},
		{"/dev/mmcblk0p1", "mmcblk0"},
		{"/dev/sda12", "sda"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, baseDisk(tt.device), tt.device)
	}
}
