package ingest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

// IsTextExport reports whether path looks like a camera text export.
func IsTextExport(path string) bool {
	_, ok := constants.CameraExportExtensions[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsPhoto reports whether path has an accepted photo extension.
func IsPhoto(path string) bool {
	_, ok := constants.PhotoExtensions[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// photoExtOrder fixes which sibling wins when several photos share a stem.
var photoExtOrder = []string{"jpg", "jpeg", "png"}

// findPhoto returns the photo next to a text export, trying the accepted
// extensions in lower and upper case.
func findPhoto(textPath string) string {
	dir := filepath.Dir(textPath)
	stem := Stem(textPath)
	for _, ext := range photoExtOrder {
		for _, e := range []string{ext, strings.ToUpper(ext)} {
			p := filepath.Join(dir, stem+"."+e)
			if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
				return p
			}
		}
	}
	return ""
}

// findTextExport is the inverse of findPhoto.
func findTextExport(photoPath string) string {
	dir := filepath.Dir(photoPath)
	stem := Stem(photoPath)
	for _, e := range []string{"txt", "TXT"} {
		p := filepath.Join(dir, stem+"."+e)
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}
