package matching

import (
	"math"

	"calmatch/internal/frame"
)

// Tolerance is the largest absolute difference at which two numeric
// readings still match.
const Tolerance = 1.0

// Matches reports whether a and b agree on every listed field. Numeric pairs
// match within Tolerance; anything else must be equal by value. A field
// recorded on only one side never matches.
func Matches(a, b frame.Instrument, fields []frame.Field) bool {
	for _, f := range fields {
		if !valuesMatch(a.Get(f), b.Get(f)) {
			return false
		}
	}
	return true
}

func valuesMatch(a, b frame.Value) bool {
	if !a.Present() || !b.Present() {
		return a.Present() == b.Present()
	}
	if a.Numeric && b.Numeric {
		return math.Abs(a.Number-b.Number) <= Tolerance
	}
	return a.Raw == b.Raw
}
