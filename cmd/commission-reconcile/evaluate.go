package main

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/internal/config"
	"github.com/iwvelando/commission-reconcile/internal/store"
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/datetime"
	"github.com/iwvelando/commission-reconcile/pkg/output"
	"github.com/iwvelando/commission-reconcile/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type evaluateOptions struct {
	asOf         string
	outputFormat string
	from         string
	to           string
	driftOnly    bool
}

func evaluateCmd(root *rootOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Reconcile every deal against the rules active on a date",
		Long: `Evaluate the configured snapshot: match each deal to its highest-priority
rule, recalculate the payout and report drift per deal and per rep.

Examples:
  # Reconcile the snapshot in config.yaml as of today
  commission-reconcile evaluate

  # Only deals that drifted, as of the end of Q2, in CSV
  commission-reconcile evaluate --as-of 2024-06-30 --drift-only --output-format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "evaluation date (YYYY-MM-DD), overrides evaluation.asOf")
	cmd.Flags().StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	cmd.Flags().StringVar(&opts.from, "from", "", "only deals closed on or after this date")
	cmd.Flags().StringVar(&opts.to, "to", "", "only deals closed on or before this date")
	cmd.Flags().BoolVar(&opts.driftOnly, "drift-only", false, "only list deals whose payout drifted")

	return cmd
}

func runEvaluate(cmd *cobra.Command, root *rootOptions, opts *evaluateOptions) error {
	conf, logger, err := root.loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	applyEvaluationOverrides(conf, opts)
	asOf, err := conf.AsOf(time.Now())
	if err != nil {
		return err
	}
	period, err := conf.Period()
	if err != nil {
		return err
	}

	rules, deals, err := loadSnapshot(cmd.Context(), conf, period, logger)
	if err != nil {
		return err
	}

	report := commission.NewEngine(logger).Evaluate(deals, rules, asOf)
	logger.Info("snapshot evaluated",
		zap.String("op", "main.evaluate"),
		zap.String("asOf", datetime.FormatDate(asOf)),
		zap.Int("deals", report.Totals.Deals),
		zap.Int("drift", report.Totals.DriftCount),
	)

	return output.Write(cmd.OutOrStdout(), outputFormat, report, opts.driftOnly || conf.Evaluation.DriftOnly)
}

func applyEvaluationOverrides(conf *config.Configuration, opts *evaluateOptions) {
	if opts.asOf != "" {
		conf.Evaluation.AsOf = opts.asOf
	}
	if opts.from != "" {
		conf.Evaluation.PeriodFrom = opts.from
	}
	if opts.to != "" {
		conf.Evaluation.PeriodTo = opts.to
	}
}

// loadSnapshot reads rules and deals from the configured source.
func loadSnapshot(ctx context.Context, conf *config.Configuration, period store.Period, logger *zap.Logger) ([]commission.Rule, []commission.Deal, error) {
	source, err := store.Open(ctx, conf.Source, conf.Snapshot(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s source: %w", conf.Source.Driver, err)
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			logger.Warn("failed to close source",
				zap.String("op", "main.loadSnapshot"),
				zap.Error(closeErr),
			)
		}
	}()

	rules, err := source.Rules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}
	deals, err := source.Deals(ctx, period)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load deals: %w", err)
	}
	return rules, deals, nil
}
