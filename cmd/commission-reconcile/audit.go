package main

import (
	"errors"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/commission"
	"github.com/iwvelando/commission-reconcile/pkg/output"
	"github.com/iwvelando/commission-reconcile/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func auditCmd(root *rootOptions) *cobra.Command {
	var asOfs []string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Reconcile the same snapshot at several as-of dates",
		Long: `Audit evaluates the snapshot once per --as-of date and prints one totals
line for each, showing how rule changes over time move the drift.

Example:
  commission-reconcile audit --as-of 2024-03-31 --as-of 2024-06-30 --as-of 2024-09-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(asOfs) == 0 {
				return errors.New("at least one --as-of date is required")
			}

			dates := make([]time.Time, 0, len(asOfs))
			for _, value := range asOfs {
				asOf, err := validation.ParseAsOf(value)
				if err != nil {
					return err
				}
				dates = append(dates, asOf)
			}

			conf, logger, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			period, err := conf.Period()
			if err != nil {
				return err
			}
			rules, deals, err := loadSnapshot(cmd.Context(), conf, period, logger)
			if err != nil {
				return err
			}

			reports, err := commission.NewEngine(logger).EvaluateHistory(cmd.Context(), deals, rules, dates)
			if err != nil {
				return err
			}
			logger.Info("audit complete",
				zap.String("op", "main.audit"),
				zap.Int("dates", len(reports)),
			)
			return output.AuditFormat(cmd.OutOrStdout(), reports)
		},
	}

	cmd.Flags().StringArrayVar(&asOfs, "as-of", nil, "evaluation date (YYYY-MM-DD); repeat for each date")

	return cmd
}
