package commission

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEvaluateHistory(t *testing.T) {
	engine := NewEngine(nil)
	deals, rules := sampleSnapshot()
	rules = append(rules, Rule{
		ID:                 "promo",
		State:              Only("TX"),
		CommissionBasis:    BasisContract,
		AgentCommissionPct: float(10),
		EffectiveStart:     date("2024-07-01"),
		EffectiveEnd:       datePtr("2024-07-31"),
		IsActive:           true,
		Priority:           5,
	})

	asOfs := []time.Time{
		date("2024-08-01"),
		date("2023-12-31"),
		date("2024-07-15"),
		date("2024-06-01"),
		date("2024-07-01"),
	}
	expected := []string{"tx", "", "promo", "tx", "promo"}

	reports, err := engine.EvaluateHistory(context.Background(), deals, rules, asOfs)
	if err != nil {
		t.Fatalf("EvaluateHistory() error = %v", err)
	}
	if len(reports) != len(asOfs) {
		t.Fatalf("got %d reports, expected %d", len(reports), len(asOfs))
	}

	for i, report := range reports {
		if !report.AsOf.Equal(asOfs[i]) {
			t.Errorf("reports[%d].AsOf = %v, expected %v", i, report.AsOf, asOfs[i])
		}
		matched := report.DealDetails[0].MatchedRule
		switch {
		case expected[i] == "" && matched != nil:
			t.Errorf("reports[%d] matched %s, expected none", i, matched.ID)
		case expected[i] != "" && (matched == nil || matched.ID != expected[i]):
			t.Errorf("reports[%d] matched %+v, expected %s", i, matched, expected[i])
		}

		single := engine.Evaluate(deals, rules, asOfs[i])
		if single.Totals != report.Totals {
			t.Errorf("reports[%d].Totals = %+v, expected %+v", i, report.Totals, single.Totals)
		}
	}
}

func TestEvaluateHistoryEmpty(t *testing.T) {
	engine := NewEngine(nil)

	reports, err := engine.EvaluateHistory(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("EvaluateHistory() error = %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("got %d reports, expected 0", len(reports))
	}
}

func TestEvaluateHistoryCancelled(t *testing.T) {
	engine := NewEngine(nil)
	deals, rules := sampleSnapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := engine.EvaluateHistory(ctx, deals, rules, []time.Time{date("2024-06-01"), date("2024-07-01")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("EvaluateHistory() error = %v, expected context.Canceled", err)
	}
	if reports != nil {
		t.Errorf("expected nil reports on cancellation, got %d", len(reports))
	}
}
