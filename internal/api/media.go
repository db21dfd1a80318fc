package api

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxImages is the most images one post can carry.
const MaxImages = 4

const (
	maxStaticImageSize   = 5 << 20  // 5 MB
	maxAnimatedImageSize = 15 << 20 // 15 MB
)

type mediaFormat struct {
	category string
	maxSize  int64
}

// Formats the upload endpoint accepts under the image categories. Animated
// GIFs get the larger budget.
var mediaFormats = map[string]mediaFormat{
	".png":  {category: "tweet_image", maxSize: maxStaticImageSize},
	".jpg":  {category: "tweet_image", maxSize: maxStaticImageSize},
	".jpeg": {category: "tweet_image", maxSize: maxStaticImageSize},
	".webp": {category: "tweet_image", maxSize: maxStaticImageSize},
	".gif":  {category: "tweet_gif", maxSize: maxAnimatedImageSize},
}

// inspectMedia validates a local file before any network call: it must
// exist, be a supported format, and fit the size limit for that format.
func inspectMedia(path string) (mediaFormat, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := mediaFormats[ext]
	if !ok {
		return mediaFormat{}, validationErrorf("unsupported media format %q: %s", ext, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return mediaFormat{}, validationErrorf("file not found: %s", path)
		}
		return mediaFormat{}, fmt.Errorf("failed to stat media file: %w", err)
	}
	if info.IsDir() {
		return mediaFormat{}, validationErrorf("not a file: %s", path)
	}
	if info.Size() > format.maxSize {
		return mediaFormat{}, validationErrorf("file too large (%d bytes, max %d for %s): %s",
			info.Size(), format.maxSize, ext, path)
	}

	return format, nil
}

func encodeMedia(media []byte) string {
	return base64.StdEncoding.EncodeToString(media)
}
