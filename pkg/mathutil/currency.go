// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/commission-reconcile/pkg/constants"
)

// Finite returns val, or 0 when val is NaN or infinite.
func Finite(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	return val
}

// ValueOr dereferences p, returning 0 for nil or non-finite values.
func ValueOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return Finite(*p)
}

// ExceedsTolerance reports whether |val| is strictly greater than tolerance.
func ExceedsTolerance(val, tolerance float64) bool {
	return math.Abs(val) > tolerance
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}
