package commission

import (
	"sort"

	"github.com/iwvelando/commission-reconcile/pkg/mathutil"
)

// Aggregate groups details by representative and sorts the groups by total
// contract value, largest first. Groups with equal totals keep the order in
// which their rep first appeared.
func Aggregate(details []DealDetail) []RepSummary {
	summaries := make([]RepSummary, 0)
	index := make(map[string]int)

	for _, detail := range details {
		name := detail.Deal.RepName()
		i, ok := index[name]
		if !ok {
			i = len(summaries)
			index[name] = i
			summaries = append(summaries, RepSummary{
				RepName:            name,
				RepresentativeRule: detail.MatchedRule,
			})
		}

		summary := &summaries[i]
		summary.TotalDeals++
		summary.TotalContractValue += mathutil.Finite(detail.Deal.ContractValue)
		summary.TotalActualPayout += detail.ActualPayout
		summary.TotalCalculatedPayout += detail.CalculatedPayout
		if detail.HasDrift {
			summary.DriftCount++
		}
		summary.Deals = append(summary.Deals, detail)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalContractValue > summaries[j].TotalContractValue
	})
	return summaries
}

// FindRep returns the summary for name, or nil.
func FindRep(summaries []RepSummary, name string) *RepSummary {
	for i := range summaries {
		if summaries[i].RepName == name {
			return &summaries[i]
		}
	}
	return nil
}
