// Package sniff classifies media payloads by file extension or leading bytes.
package sniff

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Content types recognized by the upload pipeline.
const (
	JPEG      = "image/jpeg"
	PNG       = "image/png"
	GIF       = "image/gif"
	WebP      = "image/webp"
	MP4       = "video/mp4"
	QuickTime = "video/quicktime"
)

var extensions = map[string]string{
	".jpg":  JPEG,
	".jpeg": JPEG,
	".png":  PNG,
	".gif":  GIF,
	".webp": WebP,
	".mp4":  MP4,
	".mov":  QuickTime,
}

type signature struct {
	magic       []byte
	contentType string
}

var signatures = []signature{
	{[]byte{0xFF, 0xD8, 0xFF}, JPEG},
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, PNG},
	{[]byte{0x47, 0x49, 0x46, 0x38}, GIF},
}

// minBuffer is the length of the longest signature. Shorter buffers are never classified.
var minBuffer = func() int {
	n := 0
	for _, s := range signatures {
		n = max(n, len(s.magic))
	}
	return n
}()

// FromExtension maps a file name to a content type. Unknown extensions return "".
func FromExtension(path string) string {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// FromBuffer inspects the leading bytes of b. It returns "" when b is shorter
// than the longest known signature or matches none of them.
func FromBuffer(b []byte) string {
	if len(b) < minBuffer {
		return ""
	}
	for _, s := range signatures {
		if bytes.HasPrefix(b, s.magic) {
			return s.contentType
		}
	}
	return ""
}

// Detect combines both lookups. An explicit file name outranks sniffing.
func Detect(path string, b []byte) string {
	if path != "" {
		if ct := FromExtension(path); ct != "" {
			return ct
		}
	}
	return FromBuffer(b)
}

// IsVideo reports whether ct is one of the video content types.
func IsVideo(ct string) bool {
	return strings.HasPrefix(ct, "video/")
}
