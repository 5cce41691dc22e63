package money

import "math"

// Epsilon is the tolerance used for all monetary comparisons. Amounts that
// differ by less than a cent are treated as equal.
const Epsilon = 0.01

// Round2 rounds an amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Equal reports whether two amounts are equal within Epsilon.
func Equal(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// GTE reports whether a covers b, allowing for Epsilon slack.
func GTE(a, b float64) bool {
	return a >= b-Epsilon
}

// IsZero reports whether an amount is zero within Epsilon.
func IsZero(v float64) bool {
	return math.Abs(v) < Epsilon
}
