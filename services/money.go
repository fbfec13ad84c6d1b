package services

import "math"

// Round2 rounds a dollar amount to cents, half away from zero. Each stored
// money field is rounded exactly once; intermediate sums stay unrounded so
// cents never accumulate drift.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
