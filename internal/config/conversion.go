package config

import (
	"fmt"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/internal/store"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/validation"
)

// ToRules converts the configured rules in file order. A rule with an
// unparseable start or end date keeps a zero start and is therefore never
// active.
func (c *Configuration) ToRules() []commission.Rule {
	rules := make([]commission.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rule := commission.Rule{
			ID:                   r.ID,
			Name:                 r.Name,
			SalesRep:             commission.ScopeOf(r.SalesRep),
			Team:                 commission.ScopeOf(r.Team),
			InstallPartner:       commission.ScopeOf(r.InstallPartner),
			State:                commission.ScopeOf(r.State),
			CommissionBasis:      commission.Basis(r.CommissionBasis),
			AgentCommissionPct:   copyFloat(r.AgentCommissionPct),
			AgentFlatAmount:      copyFloat(r.AgentFlatAmount),
			ManagerCommissionPct: copyFloat(r.ManagerCommissionPct),
			ManagerFlatAmount:    copyFloat(r.ManagerFlatAmount),
			IsActive:             r.Active(),
			Priority:             r.Priority,
		}
		if rule.CommissionBasis == "" {
			rule.CommissionBasis = commission.BasisContract
		}
		if start, err := datetime.ParseOptionalDate(r.EffectiveStart); err == nil && start != nil {
			rule.EffectiveStart = *start
		}
		if end, err := datetime.ParseOptionalDate(r.EffectiveEnd); err != nil {
			rule.EffectiveStart = time.Time{}
		} else {
			rule.EffectiveEnd = end
		}
		rules = append(rules, rule)
	}
	return rules
}

// ToDeals converts the configured deals in file order. An unparseable close
// date is left unknown.
func (c *Configuration) ToDeals() []commission.Deal {
	deals := make([]commission.Deal, 0, len(c.Deals))
	for _, d := range c.Deals {
		deal := commission.Deal{
			ID:              d.ID,
			CustomerName:    d.CustomerName,
			SalesRep:        d.SalesRep,
			Team:            d.Team,
			InstallPartner:  d.InstallPartner,
			Company:         d.Company,
			State:           d.State,
			ContractValue:   d.ContractValue,
			KWSystem:        d.KWSystem,
			NetPricePerWatt: d.NetPricePerWatt,
			AgentPayout:     d.AgentPayout,
		}
		if closed, err := datetime.ParseOptionalDate(d.CloseDate); err == nil && closed != nil {
			deal.CloseDate = *closed
		}
		deals = append(deals, deal)
	}
	return deals
}

// Snapshot returns the configured rules and deals as an in-memory source.
func (c *Configuration) Snapshot() *store.StaticSource {
	return store.NewStaticSource(c.ToRules(), c.ToDeals())
}

// AsOf returns the configured evaluation date, or now's calendar date when
// none is configured.
func (c *Configuration) AsOf(now time.Time) (time.Time, error) {
	if c.Evaluation.AsOf == "" {
		return datetime.DateOf(now), nil
	}
	return validation.ParseAsOf(c.Evaluation.AsOf)
}

// Period returns the configured close-date period.
func (c *Configuration) Period() (store.Period, error) {
	var period store.Period
	if c.Evaluation.PeriodFrom != "" {
		from, err := validation.ParseAsOf(c.Evaluation.PeriodFrom)
		if err != nil {
			return store.Period{}, fmt.Errorf("evaluation.periodFrom: %w", err)
		}
		period.From = from
	}
	if c.Evaluation.PeriodTo != "" {
		to, err := validation.ParseAsOf(c.Evaluation.PeriodTo)
		if err != nil {
			return store.Period{}, fmt.Errorf("evaluation.periodTo: %w", err)
		}
		period.To = to
	}
	return period, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
