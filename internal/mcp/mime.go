package mcp

import (
	"path/filepath"
	"strings"
)

// imageMimeTypes maps the extensions visual extraction actually produces to
// MIME types, for serving get_visuals images as MCP resources.
var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".pdf":  "application/pdf",
}

// MimeTypeForPath returns the MIME type for an image asset path, by
// extension. Returns "application/octet-stream" for unknown types.
func MimeTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := imageMimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
