// Package mediatype classifies a request path into a media type and
// whether that type is textual, the pure function the response assembler
// consults to fill in Content-Type.
package mediatype

import (
	"path/filepath"
	"strings"
)

// Entry pairs a MIME type with whether it should carry a charset suffix.
type Entry struct {
	Type     string
	IsTextual bool
}

var octetStream = Entry{Type: "application/octet-stream", IsTextual: false}

var table = map[string]Entry{
	".html": {Type: "text/html", IsTextual: true},
	".htm":  {Type: "text/html", IsTextual: true},
	".css":  {Type: "text/css", IsTextual: true},
	".js":   {Type: "text/javascript", IsTextual: true},
	".mjs":  {Type: "text/javascript", IsTextual: true},
	".json": {Type: "application/json", IsTextual: true},
	".txt":  {Type: "text/plain", IsTextual: true},
	".xml":  {Type: "application/xml", IsTextual: true},
	".svg":  {Type: "image/svg+xml", IsTextual: true},
	".png":  {Type: "image/png", IsTextual: false},
	".jpg":  {Type: "image/jpeg", IsTextual: false},
	".jpeg": {Type: "image/jpeg", IsTextual: false},
	".gif":  {Type: "image/gif", IsTextual: false},
	".ico":  {Type: "image/x-icon", IsTextual: false},
	".webp": {Type: "image/webp", IsTextual: false},
	".woff": {Type: "font/woff", IsTextual: false},
	".woff2": {Type: "font/woff2", IsTextual: false},
	".pdf":  {Type: "application/pdf", IsTextual: false},
	".wasm": {Type: "application/wasm", IsTextual: false},
}

// Detect returns the media type and textual flag for path, falling back to
// application/octet-stream for unknown or absent extensions.
func Detect(path string) (mediaType string, isTextual bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if e, ok := table[ext]; ok {
		return e.Type, e.IsTextual
	}
	return octetStream.Type, octetStream.IsTextual
}
