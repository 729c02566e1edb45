package commission

import (
	"sort"
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/datetime"
)

// ActiveOn reports whether the rule is active and its inclusive window
// contains asOf. Rules without a start date, or whose end precedes their
// start, are never active.
func (r Rule) ActiveOn(asOf time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveEnd != nil && datetime.DateOf(*r.EffectiveEnd).Before(datetime.DateOf(r.EffectiveStart)) {
		return false
	}
	return datetime.WithinInclusive(asOf, r.EffectiveStart, r.EffectiveEnd)
}

// Applies reports whether every scoped attribute of the rule matches the deal.
func (r Rule) Applies(deal Deal) bool {
	return r.SalesRep.Matches(deal.SalesRep) &&
		r.Team.Matches(deal.Team) &&
		r.InstallPartner.Matches(deal.Partner()) &&
		r.State.Matches(deal.State)
}

// IsCandidate combines ActiveOn and Applies.
func (r Rule) IsCandidate(deal Deal, asOf time.Time) bool {
	return r.ActiveOn(asOf) && r.Applies(deal)
}

// Candidates returns every rule that could govern the deal at asOf, ordered by
// priority descending. Equal priorities keep their order in rules.
func Candidates(deal Deal, rules []Rule, asOf time.Time) []Rule {
	var candidates []Rule
	for _, rule := range rules {
		if rule.IsCandidate(deal, asOf) {
			candidates = append(candidates, rule)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})
	return candidates
}

// Match selects the rule governing deal at asOf: the highest-priority
// candidate, the earliest in rules among equals. It returns nil when no rule
// is a candidate. The returned pointer refers to a copy.
func Match(deal Deal, rules []Rule, asOf time.Time) *Rule {
	var best *Rule
	for i := range rules {
		if !rules[i].IsCandidate(deal, asOf) {
			continue
		}
		if best == nil || rules[i].Priority > best.Priority {
			best = &rules[i]
		}
	}
	if best == nil {
		return nil
	}
	matched := *best
	return &matched
}
