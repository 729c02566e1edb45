package main

import (
	"errors"
	"fmt"

	"github.com/iwvelando/commission-reconcile/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func importCmd(root *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the configured rules and deals into a SQLite snapshot",
		Long: `Import replaces the contents of a SQLite snapshot database with the rules
and deals from the configuration file. Point source.driver at sqlite afterwards
to evaluate against the database.

Example:
  commission-reconcile import --config q2.yaml --db ./data/commission.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			path := dbPath
			if path == "" {
				path = conf.Source.Path
			}
			if path == "" {
				return errors.New("a database path is required, set --db or source.path")
			}

			source, err := store.NewSQLiteSource(path, logger)
			if err != nil {
				return err
			}
			defer func() {
				_ = source.Close()
			}()

			if err := source.Migrate(cmd.Context()); err != nil {
				return err
			}

			rules, deals := conf.ToRules(), conf.ToDeals()
			if err := source.Import(cmd.Context(), rules, deals); err != nil {
				return err
			}

			logger.Info("snapshot imported",
				zap.String("op", "main.import"),
				zap.String("path", path),
				zap.Int("rules", len(rules)),
				zap.Int("deals", len(deals)),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rules and %d deals into %s\n", len(rules), len(deals), path)
			return err
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to source.path)")

	return cmd
}
