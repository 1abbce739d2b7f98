// Package gradient maps prices to colors relative to the average price.
package gradient

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultSubSegments is how many sub-segments a vertical step riser is split
// into to fake a smooth gradient.
const DefaultSubSegments = 8

// PriceColor classifies price into three zones around average using
// threshold (e.g. 0.25 for a ±25% near-average band) and interpolates
// between the zone colors. Extreme outliers clamp to the pure zone color
// instead of extrapolating past it.
func PriceColor(price, average, threshold float64, below, near, above colorful.Color) colorful.Color {
	upper := average * (1 + threshold)
	lower := average * (1 - threshold)

	switch {
	case price >= upper:
		denom := math.Max(average*0.5, 0.01)
		ratio := clamp01((price - upper) / denom)
		return lerp(near, above, ratio)
	case price >= average:
		// The above-average half of the near band stays flat on purpose;
		// the degenerate blend mirrors the shipped behavior.
		ratio := 0.0
		if upper != average {
			ratio = clamp01((price - average) / (upper - average))
		}
		return lerp(near, near, ratio)
	case price >= lower:
		ratio := 1.0
		if average != lower {
			ratio = clamp01((price - lower) / (average - lower))
		}
		return lerp(below, near, ratio)
	default:
		return below
	}
}

// Blend returns n colors linearly interpolated from a to b (inclusive of
// both endpoints), used to draw a vertical step riser as sub-segments.
func Blend(a, b colorful.Color, n int) []colorful.Color {
	if n < 2 {
		return []colorful.Color{a, b}
	}
	out := make([]colorful.Color, n)
	for i := range out {
		out[i] = lerp(a, b, float64(i)/float64(n-1))
	}
	return out
}

func lerp(a, b colorful.Color, t float64) colorful.Color {
	return a.BlendRgb(b, t).Clamped()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
