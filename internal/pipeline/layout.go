package pipeline

import (
	"strconv"

	"github.com/specialistvlad/adcanvas/internal/node"
)

// CenteredOffsets returns the vertical offsets of n fan-out siblings spaced
// by spacing, symmetric around zero: (i - (n-1)/2) * spacing.
func CenteredOffsets(n int, spacing float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	mid := float64(n-1) / 2
	for i := range out {
		out[i] = (float64(i) - mid) * spacing
	}
	return out
}

// FormatAgeRange encodes an age range the way the generation request and
// the host UI expect it: "All", "{max}-", "{min}+" or "{min}-{max}".
func FormatAgeRange(r node.AgeRange) string {
	switch {
	case r.Min == nil && r.Max == nil:
		return "All"
	case r.Min == nil:
		return strconv.Itoa(*r.Max) + "-"
	case r.Max == nil:
		return strconv.Itoa(*r.Min) + "+"
	default:
		return strconv.Itoa(*r.Min) + "-" + strconv.Itoa(*r.Max)
	}
}
