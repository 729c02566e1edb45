package commission

import (
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/mathutil"
)

// Drift is the comparison of a recorded payout against the calculated one.
type Drift struct {
	HasDrift bool
	// Diff is actual - calculated.
	Diff float64
}

// DetectDrift flags a difference strictly larger than constants.DriftThreshold.
func DetectDrift(calculated, actual float64) Drift {
	diff := mathutil.Finite(actual) - mathutil.Finite(calculated)
	return Drift{
		HasDrift: mathutil.ExceedsTolerance(diff, constants.DriftThreshold),
		Diff:     diff,
	}
}
