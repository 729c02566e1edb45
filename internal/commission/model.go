// Package commission resolves which commission rule governs each closed deal,
// computes the payout the rule implies and reconciles it against the payout
// that was actually recorded.
package commission

import (
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/constants"
)

// Basis selects the quantity a percentage commission is applied against.
type Basis string

const (
	BasisContract Basis = constants.BasisContract
	BasisPerKW    Basis = constants.BasisPerKW
	BasisNetPrice Basis = constants.BasisNetPrice
)

// Known reports whether b is one of the recognised bases. Unknown values are
// computed as BasisContract.
func (b Basis) Known() bool {
	switch b {
	case BasisContract, BasisPerKW, BasisNetPrice:
		return true
	}
	return false
}

// Rule is a named, time-scoped payout policy.
type Rule struct {
	ID   string
	Name string

	SalesRep       Scope
	Team           Scope
	InstallPartner Scope
	State          Scope

	CommissionBasis    Basis
	AgentCommissionPct *float64
	AgentFlatAmount    *float64

	// Manager fields are carried for completeness and never computed.
	ManagerCommissionPct *float64
	ManagerFlatAmount    *float64

	// EffectiveStart is required; the zero value makes the rule inert.
	EffectiveStart time.Time
	// EffectiveEnd is inclusive; nil means open-ended.
	EffectiveEnd *time.Time
	IsActive     bool
	Priority     int
}

// Deal is a closed sale as recorded by the system of record.
type Deal struct {
	ID           string
	CustomerName string

	SalesRep       string
	Team           string
	InstallPartner string
	Company        string
	State          string

	ContractValue   float64
	KWSystem        float64
	NetPricePerWatt float64
	AgentPayout     float64

	CloseDate time.Time
}

// Partner returns the install partner, falling back to the company.
func (d Deal) Partner() string {
	if d.InstallPartner != "" {
		return d.InstallPartner
	}
	return d.Company
}

// RepName returns the sales rep or the unassigned sentinel.
func (d Deal) RepName() string {
	if d.SalesRep == "" {
		return constants.UnassignedRep
	}
	return d.SalesRep
}

// DealDetail is the per-deal reconciliation result.
type DealDetail struct {
	Deal             Deal
	MatchedRule      *Rule
	CalculatedPayout float64
	ActualPayout     float64
	// Diff is ActualPayout - CalculatedPayout; positive means overpaid.
	Diff     float64
	HasDrift bool
}

// RepSummary aggregates the deal details of one representative.
type RepSummary struct {
	RepName string
	// RepresentativeRule is the rule matched by the rep's first deal. It does
	// not imply the rep's other deals share it.
	RepresentativeRule    *Rule
	TotalDeals            int
	TotalContractValue    float64
	TotalActualPayout     float64
	TotalCalculatedPayout float64
	DriftCount            int
	Deals                 []DealDetail
}

// Totals summarises a whole report.
type Totals struct {
	Deals            int
	Matched          int
	Unmatched        int
	DriftCount       int
	ContractValue    float64
	ActualPayout     float64
	CalculatedPayout float64
	NetDiff          float64
}

// Report is the output of one evaluation.
type Report struct {
	AsOf         time.Time
	DealDetails  []DealDetail
	RepSummaries []RepSummary
	DriftDeals   []DealDetail
	Totals       Totals
}
