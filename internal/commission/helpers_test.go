package commission

import (
	"math"
	"testing"
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/datetime"
)

func float(v float64) *float64 {
	return &v
}

func date(s string) time.Time {
	return datetime.MustParseDate(s)
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

// openRule returns an active, unscoped, open-ended contract rule.
func openRule(id string, priority int, pct float64) Rule {
	return Rule{
		ID:                 id,
		Name:               "Rule " + id,
		CommissionBasis:    BasisContract,
		AgentCommissionPct: float(pct),
		EffectiveStart:     date("2024-01-01"),
		IsActive:           true,
		Priority:           priority,
	}
}

func assertAmount(t *testing.T, label string, got, expected float64) {
	t.Helper()
	if math.Abs(got-expected) > 0.001 {
		t.Errorf("%s = %.4f, expected %.4f", label, got, expected)
	}
}
