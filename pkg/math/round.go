package math

import "math"

// CeilPrecision rounds v up at the sixth decimal: ceil(v*1e6)/1e6.
// The value is widened to float64 first, so the result is not bit-identical
// to the float32 input even when no rounding happens.
func CeilPrecision(v float32) float64 {
	return math.Ceil(float64(v)*1e6) / 1e6
}
