package media

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewName(t *testing.T) {
	ts := time.UnixMilli(1718000000123)

	tests := []struct {
		original string
		want     string
	}{
		{"clip.mp4", "1718000000123-clip.mp4"},
		{"my clip (1).mp4", "1718000000123-my_clip__1_.mp4"},
		{"../../etc/passwd", "1718000000123-passwd"},
		{`C:\Users\bob\voice.m4a`, "1718000000123-voice.m4a"},
		{".hidden", "1718000000123-hidden"},
		{"", "1718000000123-file"},
		{"/", "1718000000123-_"},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, NewName(tt.original, ts))
		})
	}
}

func TestRefName(t *testing.T) {
	name, err := refName("uploads/1-a.mp4")
	assert.NoError(t, err)
	assert.Equal(t, "1-a.mp4", name)

	for _, bad := range []string{"", "uploads/", "1-a.mp4", "uploads/../x", "uploads/a/b", "other/1-a.mp4", `uploads/..\x`} {
		_, err := refName(bad)
		assert.True(t, errors.Is(err, ErrInvalidRef), "ref %q should be rejected", bad)
	}
}
