package mediafilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEligibleFile(t *testing.T) {
	f := Default()

	tests := []struct {
		name string
		want bool
	}{
		{"A001C002_230101_R1AB.mov", true},
		{"clip.MP4", true},
		{"IMG_0001.CR3", true},
		{"shot.braw", true},
		{"audio.WAV", true},
		{"metadata.xml", true},
		{"notes.txt", false},
		{"card.bin", false},
		{".DS_Store", false},
		{".hidden.mov", false},
		{"Thumbs.db", false},
		{"MEDIAPRO.XML", false},
		{"SONYCARD.IND", false},
		{"AVIN0001.INP", false},
		{"MOVIEOBJ.BDM", false},
		{"noextension", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.EligibleFile(tt.name))
		})
	}
}

func TestNewExtraExtensions(t *testing.T) {
	f := New([]string{".seq", "EXR", " dpx "})

	assert.True(t, f.EligibleFile("frame.exr"))
	assert.True(t, f.EligibleFile("frame.SEQ"))
	assert.True(t, f.EligibleFile("frame.dpx"))
	// Defaults are preserved.
	assert.True(t, f.EligibleFile("clip.mov"))
	assert.False(t, f.EligibleFile("frame.tga"))
}

func TestSkipDir(t *testing.T) {
	f := Default()
	assert.True(t, f.SkipDir(".Trashes"))
	assert.True(t, f.SkipDir(".fseventsd"))
	assert.False(t, f.SkipDir("DCIM"))
	assert.False(t, f.SkipDir("PRIVATE"))
}
