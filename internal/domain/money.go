package domain

import "math"

// roundingEpsilon compensates for float64 representation error before
// half-up rounding, so values like 1.005 stored as 1.00499999... still
// round to 1.01. Matches IEEE 754 double machine epsilon.
const roundingEpsilon = 2.220446049250313e-16

// Round2 rounds a currency amount to 2 decimal places, half-up. Every
// amount stored or returned by this package passes through Round2 so that
// total == subtotal + shipping + tax holds exactly, never approximately.
func Round2(v float64) float64 {
	return math.Round((v+roundingEpsilon)*100) / 100
}

// ToMinorUnits converts a currency amount to integer minor units (cents).
// Used only at the payment-provider boundary; internal arithmetic stays in
// float64 with Round2 applied at every step.
func ToMinorUnits(v float64) int64 {
	return int64(math.Round(Round2(v) * 100))
}
