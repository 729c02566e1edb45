package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/iwvelando/commission-reconcile/internal/config"
	"github.com/iwvelando/commission-reconcile/internal/server"
	"github.com/iwvelando/commission-reconcile/internal/store"
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(root *rootOptions) *cobra.Command {
	var serverConfigPath, address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciliation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			serverCfg, err := server.LoadConfig(serverConfigPath)
			if err != nil {
				return err
			}
			if address != "" {
				serverCfg.Address = address
			}

			logger, err := initializeLogger(serverCfg.Logging, root.logLevel)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			source, err := openServerSource(cmd.Context(), serverCfg, root.configPath, logger)
			if err != nil {
				return err
			}
			if source != nil {
				defer func() {
					_ = source.Close()
				}()
			}

			return serve(cmd.Context(), serverCfg, source, logger)
		},
	}

	cmd.Flags().StringVar(&serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&address, "address", "", "listen address override")

	return cmd
}

// openServerSource opens the server's database source, or falls back to the
// snapshot in the configuration file. Without either the server only accepts
// uploaded snapshots.
func openServerSource(ctx context.Context, serverCfg *server.Config, configPath string, logger *zap.Logger) (store.Source, error) {
	switch serverCfg.Source.Driver {
	case "", constants.SourceDriverConfig:
	default:
		return store.Open(ctx, serverCfg.Source, nil, logger)
	}

	if _, err := os.Stat(configPath); err != nil {
		logger.Warn("no snapshot configuration found, serving uploads only",
			zap.String("op", "main.openServerSource"),
			zap.String("config", configPath),
		)
		return nil, nil
	}

	conf, err := config.LoadConfiguration(configPath)
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, conf.Source, conf.Snapshot(), logger)
}

func serve(ctx context.Context, serverCfg *server.Config, source store.Source, logger *zap.Logger) error {
	httpServer := &http.Server{
		Addr:         serverCfg.Address,
		Handler:      server.NewHandler(logger, source, serverCfg.UploadSizeBytes(), version),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server",
			zap.String("op", "main.serve"),
			zap.String("address", serverCfg.Address),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server", zap.String("op", "main.serve"))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
