package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func truncatedFile(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}

func TestInspectMedia_Categories(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		category string
	}{
		{"png", "pic.png", "tweet_image"},
		{"jpg", "pic.jpg", "tweet_image"},
		{"jpeg", "pic.jpeg", "tweet_image"},
		{"webp", "pic.webp", "tweet_image"},
		{"uppercase extension", "PIC.PNG", "tweet_image"},
		{"gif", "anim.gif", "tweet_gif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := truncatedFile(t, tt.file, 1024)
			format, err := inspectMedia(path)
			require.NoError(t, err)
			assert.Equal(t, tt.category, format.category)
		})
	}
}

func TestInspectMedia_UnsupportedFormat(t *testing.T) {
	path := truncatedFile(t, "clip.mp4", 1024)

	_, err := inspectMedia(path)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), ".mp4")
}

func TestInspectMedia_Missing(t *testing.T) {
	_, err := inspectMedia(filepath.Join(t.TempDir(), "gone.png"))
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestInspectMedia_Directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "album.png")
	require.NoError(t, os.Mkdir(dir, 0o755))

	_, err := inspectMedia(dir)
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestInspectMedia_SizeLimits(t *testing.T) {
	tests := []struct {
		name string
		file string
		size int64
		ok   bool
	}{
		{"static at the limit", "a.png", maxStaticImageSize, true},
		{"static over the limit", "b.png", maxStaticImageSize + 1, false},
		{"gif between the limits", "c.gif", maxStaticImageSize + 1, true},
		{"gif at the limit", "d.gif", maxAnimatedImageSize, true},
		{"gif over the limit", "e.gif", maxAnimatedImageSize + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := truncatedFile(t, tt.file, tt.size)
			_, err := inspectMedia(path)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}
