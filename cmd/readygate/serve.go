package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/notify"
	"github.com/fyrsmithlabs/readygate/internal/report"
	"github.com/fyrsmithlabs/readygate/internal/server"
	"github.com/fyrsmithlabs/readygate/internal/telemetry"
	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the readygate HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := workflow.NewRunner(cfg.Pipeline, workflow.Options{
		Store:   store,
		Logger:  logger,
		Metrics: workflow.NewMetrics(logger),
	})
	if err != nil {
		return err
	}

	var sinks []server.Sink
	if cfg.Notify.Enabled {
		publisher, err := notify.Connect(cfg.Notify, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	if cfg.Report.Enabled {
		statuses, err := report.New(ctx, cfg.Report, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, statuses)
	}

	srv, err := server.New(cfg.Server, runner, store, logger, sinks...)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server shutdown complete")
	return nil
}
