package imaging

import "math"

// GaussianOverlap converts the absolute gap between a cell's angular
// distance and a cone's opening angle into an intersection score. The score
// is 1 when the cell lies exactly on the cone surface and falls off as a
// Gaussian with the given width, which models the angular uncertainty of
// the measured cone. Pure function; both arguments are in degrees.
func GaussianOverlap(gapDeg, widthDeg float64) float64 {
	return math.Exp(-(gapDeg * gapDeg) / (2 * widthDeg * widthDeg))
}

// AngularSeparationDeg converts a dot product of two unit vectors into
// their great-circle separation in degrees.
//
// Rounding can push the dot product of two unit vectors slightly outside
// [-1, 1], where Acos returns NaN. Any such value, including a NaN dot
// product from a malformed axis, is treated as exactly aligned (zero
// separation). This is the tolerance policy the imaging chain has always
// used and downstream results depend on it; it also means a genuinely
// non-unit axis is masked rather than reported.
func AngularSeparationDeg(dot float64) float64 {
	if !(dot >= -1 && dot <= 1) {
		return 0
	}
	return math.Acos(dot) * 180 / math.Pi
}
