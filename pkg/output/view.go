package output

import (
	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/mathutil"
)

// ReportView is the JSON representation of a commission.Report, shared by the
// CLI json output and the HTTP API.
type ReportView struct {
	AsOf         string     `json:"asOf"`
	DealDetails  []DealView `json:"dealDetails"`
	RepSummaries []RepView  `json:"repSummaries"`
	DriftDeals   []DealView `json:"driftDeals"`
	Totals       TotalsView `json:"totals"`
}

// DealView is one reconciled deal.
type DealView struct {
	Deal             DealRecord `json:"deal"`
	MatchedRule      *RuleView  `json:"matchedRule"`
	CalculatedPayout float64    `json:"calculatedPayout"`
	ActualPayout     float64    `json:"actualPayout"`
	Diff             float64    `json:"diff"`
	HasDrift         bool       `json:"hasDrift"`
}

// DealRecord mirrors commission.Deal.
type DealRecord struct {
	ID              string  `json:"id"`
	CustomerName    string  `json:"customerName,omitempty"`
	SalesRep        string  `json:"salesRep,omitempty"`
	Team            string  `json:"team,omitempty"`
	InstallPartner  string  `json:"installPartner,omitempty"`
	Company         string  `json:"company,omitempty"`
	State           string  `json:"state,omitempty"`
	ContractValue   float64 `json:"contractValue"`
	KWSystem        float64 `json:"kwSystem"`
	NetPricePerWatt float64 `json:"netPricePerWatt"`
	AgentPayout     float64 `json:"agentPayout"`
	CloseDate       string  `json:"closeDate,omitempty"`
}

// RuleView mirrors commission.Rule. Null scopes match any deal.
type RuleView struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	SalesRep             *string  `json:"salesRep"`
	Team                 *string  `json:"team"`
	InstallPartner       *string  `json:"installPartner"`
	State                *string  `json:"state"`
	CommissionBasis      string   `json:"commissionBasis"`
	AgentCommissionPct   *float64 `json:"agentCommissionPct"`
	AgentFlatAmount      *float64 `json:"agentFlatAmount"`
	ManagerCommissionPct *float64 `json:"managerCommissionPct"`
	ManagerFlatAmount    *float64 `json:"managerFlatAmount"`
	EffectiveStart       string   `json:"effectiveStart"`
	EffectiveEnd         *string  `json:"effectiveEnd"`
	IsActive             bool     `json:"isActive"`
	Priority             int      `json:"priority"`
}

// RepView is one representative's summary.
type RepView struct {
	RepName               string     `json:"repName"`
	RepresentativeRule    *RuleView  `json:"representativeRule"`
	TotalDeals            int        `json:"totalDeals"`
	TotalContractValue    float64    `json:"totalContractValue"`
	TotalActualPayout     float64    `json:"totalActualPayout"`
	TotalCalculatedPayout float64    `json:"totalCalculatedPayout"`
	DriftCount            int        `json:"driftCount"`
	Deals                 []DealView `json:"deals"`
}

// TotalsView mirrors commission.Totals.
type TotalsView struct {
	Deals            int     `json:"deals"`
	Matched          int     `json:"matched"`
	Unmatched        int     `json:"unmatched"`
	DriftCount       int     `json:"driftCount"`
	ContractValue    float64 `json:"contractValue"`
	ActualPayout     float64 `json:"actualPayout"`
	CalculatedPayout float64 `json:"calculatedPayout"`
	NetDiff          float64 `json:"netDiff"`
}

// NewReportView converts a report. Slices in the result are never nil.
func NewReportView(report commission.Report) ReportView {
	reps := make([]RepView, 0, len(report.RepSummaries))
	for _, summary := range report.RepSummaries {
		reps = append(reps, NewRepView(summary))
	}

	t := report.Totals
	return ReportView{
		AsOf:         datetime.FormatDate(report.AsOf),
		DealDetails:  NewDealViews(report.DealDetails),
		RepSummaries: reps,
		DriftDeals:   NewDealViews(report.DriftDeals),
		Totals: TotalsView{
			Deals:            t.Deals,
			Matched:          t.Matched,
			Unmatched:        t.Unmatched,
			DriftCount:       t.DriftCount,
			ContractValue:    t.ContractValue,
			ActualPayout:     t.ActualPayout,
			CalculatedPayout: t.CalculatedPayout,
			NetDiff:          t.NetDiff,
		},
	}
}

// NewRepView converts a rep summary.
func NewRepView(summary commission.RepSummary) RepView {
	return RepView{
		RepName:               summary.RepName,
		RepresentativeRule:    NewRuleView(summary.RepresentativeRule),
		TotalDeals:            summary.TotalDeals,
		TotalContractValue:    summary.TotalContractValue,
		TotalActualPayout:     summary.TotalActualPayout,
		TotalCalculatedPayout: summary.TotalCalculatedPayout,
		DriftCount:            summary.DriftCount,
		Deals:                 NewDealViews(summary.Deals),
	}
}

// NewDealViews converts deal details.
func NewDealViews(details []commission.DealDetail) []DealView {
	views := make([]DealView, 0, len(details))
	for _, detail := range details {
		d := detail.Deal
		views = append(views, DealView{
			Deal: DealRecord{
				ID:              d.ID,
				CustomerName:    d.CustomerName,
				SalesRep:        d.SalesRep,
				Team:            d.Team,
				InstallPartner:  d.InstallPartner,
				Company:         d.Company,
				State:           d.State,
				ContractValue:   mathutil.Finite(d.ContractValue),
				KWSystem:        mathutil.Finite(d.KWSystem),
				NetPricePerWatt: mathutil.Finite(d.NetPricePerWatt),
				AgentPayout:     mathutil.Finite(d.AgentPayout),
				CloseDate:       datetime.FormatDate(d.CloseDate),
			},
			MatchedRule:      NewRuleView(detail.MatchedRule),
			CalculatedPayout: detail.CalculatedPayout,
			ActualPayout:     detail.ActualPayout,
			Diff:             detail.Diff,
			HasDrift:         detail.HasDrift,
		})
	}
	return views
}

// NewRuleView converts a rule; nil stays nil.
func NewRuleView(rule *commission.Rule) *RuleView {
	if rule == nil {
		return nil
	}
	view := &RuleView{
		ID:                   rule.ID,
		Name:                 rule.Name,
		SalesRep:             rule.SalesRep.Ptr(),
		Team:                 rule.Team.Ptr(),
		InstallPartner:       rule.InstallPartner.Ptr(),
		State:                rule.State.Ptr(),
		CommissionBasis:      string(rule.CommissionBasis),
		AgentCommissionPct:   finitePtr(rule.AgentCommissionPct),
		AgentFlatAmount:      finitePtr(rule.AgentFlatAmount),
		ManagerCommissionPct: finitePtr(rule.ManagerCommissionPct),
		ManagerFlatAmount:    finitePtr(rule.ManagerFlatAmount),
		EffectiveStart:       datetime.FormatDate(rule.EffectiveStart),
		IsActive:             rule.IsActive,
		Priority:             rule.Priority,
	}
	if rule.EffectiveEnd != nil {
		end := datetime.FormatDate(*rule.EffectiveEnd)
		view.EffectiveEnd = &end
	}
	return view
}

// NewRuleViews converts a rule list.
func NewRuleViews(rules []commission.Rule) []RuleView {
	views := make([]RuleView, 0, len(rules))
	for i := range rules {
		views = append(views, *NewRuleView(&rules[i]))
	}
	return views
}

func finitePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := mathutil.Finite(*v)
	return &f
}
