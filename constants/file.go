package constants

import "strings"

// DocumentKind tags the output track of a rendered document.
type DocumentKind string

const (
	DocumentPDF DocumentKind = "pdf"
	DocumentPNG DocumentKind = "png"
)

// Ext returns the file extension (without '.') for the kind.
func (k DocumentKind) Ext() string {
	return string(k)
}

// ContentType returns the MIME type used for previews and attachments.
func (k DocumentKind) ContentType() string {
	switch k {
	case DocumentPNG:
		return "image/png"
	default:
		return "application/pdf"
	}
}

// ParseDocumentKind maps "pdf"/"png" (any case) to a kind.
func ParseDocumentKind(s string) (DocumentKind, bool) {
	switch NormalizeExt(s) {
	case "pdf":
		return DocumentPDF, true
	case "png":
		return DocumentPNG, true
	}
	return "", false
}

// PhotoExtensions holds the image extensions accepted as infraction photos.
var PhotoExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// CameraExportExtensions holds the extensions of camera text exports.
var CameraExportExtensions = map[string]struct{}{
	"txt": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
