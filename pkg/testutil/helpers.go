// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
)

// FindDeal finds a deal detail by deal id.
// Returns a pointer to the detail if found, nil otherwise.
func FindDeal(details []commission.DealDetail, id string) *commission.DealDetail {
	for i := range details {
		if details[i].Deal.ID == id {
			return &details[i]
		}
	}
	return nil
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// SampleSnapshot returns a small snapshot with one Texas rule and three
// deals: one matched and underpaid, one unmatched and one matched but unpaid.
func SampleSnapshot() ([]commission.Rule, []commission.Deal) {
	rules := []commission.Rule{
		{
			ID:                 "tx",
			Name:               "Texas standard",
			State:              commission.Only("TX"),
			CommissionBasis:    commission.BasisContract,
			AgentCommissionPct: Float(5),
			EffectiveStart:     datetime.MustParseDate("2024-01-01"),
			IsActive:           true,
			Priority:           1,
		},
	}
	deals := []commission.Deal{
		{ID: "d1", CustomerName: "Alvarez", SalesRep: "A", State: "TX", ContractValue: 50000, AgentPayout: 2400, CloseDate: datetime.MustParseDate("2024-03-01")},
		{ID: "d2", CustomerName: "Brooks", SalesRep: "A", State: "CA", ContractValue: 60000, AgentPayout: 3000, CloseDate: datetime.MustParseDate("2024-03-02")},
		{ID: "d3", CustomerName: "Chen", SalesRep: "B", State: "TX", ContractValue: 40000, AgentPayout: 0, CloseDate: datetime.MustParseDate("2024-04-03")},
	}
	return rules, deals
}
