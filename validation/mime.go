package validation

import (
	"mime"
	"strings"
)

// rasterMimeTypes is the allow-list of content types eligible for resizing.
var rasterMimeTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// RasterMimeTypes returns a copy of the allow-list.
func RasterMimeTypes() []string {
	return append([]string(nil), rasterMimeTypes...)
}

// NormalizeMime strips parameters and lower-cases a Content-Type value.
func NormalizeMime(contentType string) string {
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}

	return parsed
}

func IsRasterMime(contentType string) bool {
	mimeType := NormalizeMime(contentType)
	for _, rasterMimeType := range rasterMimeTypes {
		if mimeType == rasterMimeType {
			return true
		}
	}

	return false
}
