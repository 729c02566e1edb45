package testutil

import (
	"testing"

	"github.com/iwvelando/commission-reconcile/internal/commission"
)

func TestFindDeal(t *testing.T) {
	details := []commission.DealDetail{
		{Deal: commission.Deal{ID: "d1", ContractValue: 1000}},
		{Deal: commission.Deal{ID: "d2", ContractValue: 2000}},
		{Deal: commission.Deal{ID: "d10", ContractValue: 3000}},
	}

	tests := []struct {
		name          string
		searchID      string
		expectFound   bool
		expectedValue float64
	}{
		{"Find first deal", "d1", true, 1000},
		{"Find middle deal", "d2", true, 2000},
		{"Prefix does not match", "d", false, 0},
		{"Find longer id", "d10", true, 3000},
		{"Empty id", "", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindDeal(details, tt.searchID)

			if !tt.expectFound {
				if result != nil {
					t.Errorf("FindDeal(%q) expected nil, got %+v", tt.searchID, result)
				}
				return
			}
			if result == nil {
				t.Fatalf("FindDeal(%q) expected to find deal", tt.searchID)
			}
			if result.Deal.ContractValue != tt.expectedValue {
				t.Errorf("FindDeal(%q) contract value = %.2f, expected %.2f", tt.searchID, result.Deal.ContractValue, tt.expectedValue)
			}
		})
	}
}

func TestFindDealReturnsReference(t *testing.T) {
	details := []commission.DealDetail{{Deal: commission.Deal{ID: "d1"}}}

	FindDeal(details, "d1").HasDrift = true
	if !details[0].HasDrift {
		t.Error("FindDeal should return a pointer into the slice")
	}
}

func TestFindDealEmpty(t *testing.T) {
	if FindDeal(nil, "d1") != nil {
		t.Error("FindDeal(nil) should return nil")
	}
}

func TestSampleSnapshot(t *testing.T) {
	rules, deals := SampleSnapshot()
	if len(rules) != 1 || len(deals) != 3 {
		t.Fatalf("SampleSnapshot() returned %d rules and %d deals", len(rules), len(deals))
	}
	if !rules[0].IsCandidate(deals[0], deals[0].CloseDate) {
		t.Error("sample rule should govern the first deal")
	}
	if rules[0].Applies(deals[1]) {
		t.Error("sample rule should not apply to the California deal")
	}
	if *rules[0].AgentCommissionPct != 5 {
		t.Errorf("sample rule percentage = %v", *rules[0].AgentCommissionPct)
	}
}
