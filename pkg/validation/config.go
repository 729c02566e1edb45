// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
)

// RuleConfig is the subset of a configured rule that validation inspects.
type RuleConfig struct {
	ID              string
	Name            string
	SalesRep        string
	Team            string
	InstallPartner  string
	State           string
	CommissionBasis string
	EffectiveStart  string
	EffectiveEnd    string
	IsActive        bool
	Priority        int
}

// DealConfig is the subset of a configured deal that validation inspects.
type DealConfig struct {
	ID        string
	SalesRep  string
	CloseDate string
}

// ConfigValidator checks a snapshot for problems that do not prevent
// evaluation but change its outcome.
type ConfigValidator struct {
	Rules []RuleConfig
	Deals []DealConfig
}

// label names a rule by id, falling back to its name.
func (r RuleConfig) label() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Name
}

// ValidateRuleWindow reports rules that can never be active because of their
// effective dates.
func ValidateRuleWindow(rule, start, end string) []string {
	var warnings []string

	startDate, startErr := datetime.ParseOptionalDate(start)
	if startErr != nil {
		warnings = append(warnings, fmt.Sprintf("Rule '%s' has unparseable effective start %q and will never match", rule, start))
	} else if startDate == nil {
		warnings = append(warnings, fmt.Sprintf("Rule '%s' has no effective start and will never match", rule))
	}

	endDate, endErr := datetime.ParseOptionalDate(end)
	if endErr != nil {
		warnings = append(warnings, fmt.Sprintf("Rule '%s' has unparseable effective end %q and will never match", rule, end))
	}

	if startDate != nil && endDate != nil && endDate.Before(*startDate) {
		warnings = append(warnings, fmt.Sprintf("Rule '%s' ends before it starts (%s < %s) and will never match",
			rule, datetime.FormatDate(*endDate), datetime.FormatDate(*startDate)))
	}

	return warnings
}

// ValidateBasis reports a commission basis that will be computed as contract.
func ValidateBasis(rule, basis string) string {
	switch basis {
	case "", constants.BasisContract, constants.BasisPerKW, constants.BasisNetPrice:
		return ""
	}
	return fmt.Sprintf("Rule '%s' has unknown commission basis %q; contract value will be used", rule, basis)
}

// ValidateAll validates the snapshot and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	seen := make(map[string]bool)
	for _, rule := range cv.Rules {
		name := rule.label()

		if rule.ID != "" {
			if seen[rule.ID] {
				warnings = append(warnings, fmt.Sprintf("Rule id '%s' is used more than once", rule.ID))
			}
			seen[rule.ID] = true
		}

		if !rule.IsActive {
			warnings = append(warnings, fmt.Sprintf("Rule '%s' is inactive and will never match", name))
			continue
		}

		warnings = append(warnings, ValidateRuleWindow(name, rule.EffectiveStart, rule.EffectiveEnd)...)
		if warning := ValidateBasis(name, rule.CommissionBasis); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	warnings = append(warnings, cv.validateOverlaps()...)

	for i, deal := range cv.Deals {
		name := deal.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if deal.SalesRep == "" {
			warnings = append(warnings, fmt.Sprintf("Deal '%s' has no sales rep and is reported as %s", name, constants.UnassignedRep))
		}
		if _, err := datetime.ParseOptionalDate(deal.CloseDate); err != nil {
			warnings = append(warnings, fmt.Sprintf("Deal '%s' has unparseable close date %q", name, deal.CloseDate))
		}
	}

	return warnings
}

// validateOverlaps reports pairs of active rules with equal priority that can
// govern the same deal on the same day, where file order decides the winner.
func (cv *ConfigValidator) validateOverlaps() []string {
	var warnings []string

	for i := 0; i < len(cv.Rules); i++ {
		a := cv.Rules[i]
		if !a.IsActive {
			continue
		}
		for j := i + 1; j < len(cv.Rules); j++ {
			b := cv.Rules[j]
			if !b.IsActive || a.Priority != b.Priority {
				continue
			}
			if !scopesIntersect(a, b) || !windowsIntersect(a, b) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf(
				"Rules '%s' and '%s' share priority %d and can match the same deal; '%s' wins by order",
				a.label(), b.label(), a.Priority, a.label()))
		}
	}

	return warnings
}

func scopesIntersect(a, b RuleConfig) bool {
	return scopeIntersects(a.SalesRep, b.SalesRep) &&
		scopeIntersects(a.Team, b.Team) &&
		scopeIntersects(a.InstallPartner, b.InstallPartner) &&
		scopeIntersects(a.State, b.State)
}

func scopeIntersects(a, b string) bool {
	return a == "" || b == "" || a == b
}

func windowsIntersect(a, b RuleConfig) bool {
	aStart, aEnd, ok := window(a)
	if !ok {
		return false
	}
	bStart, bEnd, ok := window(b)
	if !ok {
		return false
	}
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}

// window returns a rule's parsed window, or false when it can never be active.
func window(r RuleConfig) (time.Time, *time.Time, bool) {
	start, err := datetime.ParseOptionalDate(r.EffectiveStart)
	if err != nil || start == nil {
		return time.Time{}, nil, false
	}
	end, err := datetime.ParseOptionalDate(r.EffectiveEnd)
	if err != nil {
		end = nil
	}
	if end != nil && end.Before(*start) {
		return time.Time{}, nil, false
	}
	return *start, end, true
}
