package render

const (
	mmPerInch   = 25.4
	pointsPerMM = 72 / mmPerInch

	// DefaultDPI matches the thermal printers the in-person tickets target.
	DefaultDPI = 203
)

// MMToPoints converts millimetres to PDF points.
func MMToPoints(mm float64) float64 {
	return mm * pointsPerMM
}

// MMToPixels converts millimetres to pixels at dpi.
func MMToPixels(mm, dpi float64) float64 {
	return mm / mmPerInch * dpi
}

// FitRect scales a srcW x srcH image uniformly to fit inside box and
// centres it. All values share the unit of box.
func FitRect(srcW, srcH float64, box Box) (x, y, w, h float64) {
	if srcW <= 0 || srcH <= 0 || !box.Enabled() {
		return box.X, box.Y, 0, 0
	}
	scale := box.W / srcW
	if s := box.H / srcH; s < scale {
		scale = s
	}
	w, h = srcW*scale, srcH*scale
	x = box.X + (box.W-w)/2
	y = box.Y + (box.H-h)/2
	return x, y, w, h
}
