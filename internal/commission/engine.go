package commission

import (
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/mathutil"
	"go.uber.org/zap"
)

// Engine evaluates deal and rule snapshots. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a new engine with the given logger.
// If logger is nil, it will use a no-op logger to prevent panics.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Evaluate reconciles every deal against rules as of the given date. The
// result depends only on its arguments; the same snapshot may resolve to
// different rules at a different asOf.
func (e *Engine) Evaluate(deals []Deal, rules []Rule, asOf time.Time) Report {
	asOf = datetime.DateOf(asOf)

	details := make([]DealDetail, 0, len(deals))
	for _, deal := range deals {
		details = append(details, EvaluateDeal(deal, rules, asOf))
	}

	driftDeals := make([]DealDetail, 0)
	for _, detail := range details {
		if detail.HasDrift {
			driftDeals = append(driftDeals, detail)
		}
	}

	report := Report{
		AsOf:         asOf,
		DealDetails:  details,
		RepSummaries: Aggregate(details),
		DriftDeals:   driftDeals,
		Totals:       summarize(details),
	}

	e.logger.Debug("evaluated commission snapshot",
		zap.String("op", "commission.Evaluate"),
		zap.String("asOf", datetime.FormatDate(asOf)),
		zap.Int("deals", len(deals)),
		zap.Int("rules", len(rules)),
		zap.Int("unmatched", report.Totals.Unmatched),
		zap.Int("drift", report.Totals.DriftCount),
	)

	return report
}

// EvaluateDeal runs match, payout and drift detection for one deal.
func EvaluateDeal(deal Deal, rules []Rule, asOf time.Time) DealDetail {
	rule := Match(deal, rules, asOf)
	calculated := CalculatePayout(rule, deal)
	actual := mathutil.Finite(deal.AgentPayout)
	drift := DetectDrift(calculated, actual)

	return DealDetail{
		Deal:             deal,
		MatchedRule:      rule,
		CalculatedPayout: calculated,
		ActualPayout:     actual,
		Diff:             drift.Diff,
		HasDrift:         drift.HasDrift,
	}
}

func summarize(details []DealDetail) Totals {
	var totals Totals
	for _, detail := range details {
		totals.Deals++
		if detail.MatchedRule != nil {
			totals.Matched++
		} else {
			totals.Unmatched++
		}
		if detail.HasDrift {
			totals.DriftCount++
		}
		totals.ContractValue += mathutil.Finite(detail.Deal.ContractValue)
		totals.ActualPayout += detail.ActualPayout
		totals.CalculatedPayout += detail.CalculatedPayout
		totals.NetDiff += detail.Diff
	}
	return totals
}
