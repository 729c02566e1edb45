package commission

import (
	"context"
	"time"

	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EvaluateHistory evaluates the same snapshot at each date in asOfs, in
// parallel, and returns the reports in the order of asOfs. The only error is
// the context's.
func (e *Engine) EvaluateHistory(ctx context.Context, deals []Deal, rules []Rule, asOfs []time.Time) ([]Report, error) {
	reports := make([]Report, len(asOfs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.DefaultHistoryWorkers)

	for i, asOf := range asOfs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = e.Evaluate(deals, rules, asOf)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Warn("history evaluation interrupted",
			zap.String("op", "commission.EvaluateHistory"),
			zap.Int("dates", len(asOfs)),
			zap.Error(err),
		)
		return nil, err
	}
	return reports, nil
}
