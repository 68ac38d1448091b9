package filecenter

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Common MIME types
const (
	MIMETypeOctetStream     = "application/octet-stream"
	MIMETypeTextPlain       = "text/plain"
	MIMETypeApplicationJSON = "application/json"
	MIMETypeImageJPEG       = "image/jpeg"
	MIMETypeImagePNG        = "image/png"
	MIMETypeApplicationPDF  = "application/pdf"
)

// Extensions content sniffing cannot tell apart from plain text or zip
var extensionToMIME = map[string]string{
	".css":  "text/css",
	".csv":  "text/csv",
	".js":   "text/javascript",
	".md":   "text/markdown",
	".svg":  "image/svg+xml",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// GuessMimeType determines the MIME type of a file from the leading bytes of
// its content, falling back to its name's extension.
func GuessMimeType(fileName string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if contentType, ok := extensionToMIME[ext]; ok {
		return contentType
	}

	if len(head) > 0 {
		detected := mimetype.Detect(head)
		if !detected.Is(MIMETypeOctetStream) {
			return CanonicalMimeType(detected.String())
		}
	}

	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return CanonicalMimeType(contentType)
	}

	return MIMETypeOctetStream
}

// CanonicalMimeType normalizes a media type: lower-cased type and subtype,
// parameters sorted and quoted where needed. Unparseable input falls back
// to application/octet-stream.
func CanonicalMimeType(contentType string) string {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return MIMETypeOctetStream
	}
	if formatted := mime.FormatMediaType(mediaType, params); formatted != "" {
		return formatted
	}
	return mediaType
}
