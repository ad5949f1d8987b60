package distance

import (
	"math"
	"strconv"
)

// formatShortest renders f the way the histogram output always has:
// shortest round-trip digits, a ".0" on whole numbers, and exponent
// notation only for very small or very large magnitudes.
func formatShortest(f float64) string {
	abs := math.Abs(f)
	switch {
	case math.IsInf(f, 0) || math.IsNaN(f):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case abs != 0 && (abs < 1e-4 || abs >= 1e16):
		return strconv.FormatFloat(f, 'g', -1, 64)
	case f == math.Trunc(f):
		return strconv.FormatFloat(f, 'f', 1, 64)
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// formatG renders f with six significant digits, like printf's %g.
func formatG(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
