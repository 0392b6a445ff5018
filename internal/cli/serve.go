package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/version"
)

const initialLoadTimeout = 60 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the sales data and serve the dashboard",
		Long: `Load the transaction sheet and start the HTTP dashboard.

The process exits with an error if the initial load fails. With --watch the
data file is reloaded whenever it changes on disk and open dashboards are
refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return runServe(ctx, GetConfig(ctx), observability.Logger(ctx))
		},
	}

	cmd.Flags().BoolP("watch", "w", false, "Reload the data file when it changes")
	cmd.Flags().String("host", "", "Address to listen on")
	cmd.Flags().IntP("port", "p", 0, "Port to listen on")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	slog.SetDefault(logger)
	logger.Info("starting application",
		"version", version.Version,
		"commit", version.Commit,
		"source", cfg.Data.Source,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	load, err := newLoadFunc(ctx, cfg, logger)
	if err != nil {
		return err
	}

	dashboard := services.NewDashboard(services.DashboardOptions{
		Load:      load,
		TopN:      cfg.Dashboard.TopN,
		CacheSize: cfg.Dashboard.CacheSize,
		CacheTTL:  cfg.Dashboard.CacheTTL,
		Logger:    logger,
	})

	loadCtx, cancel := context.WithTimeout(ctx, initialLoadTimeout)
	start := time.Now()
	err = dashboard.Reload(loadCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load sales data: %w", err)
	}
	logger.Info("sales data loaded", "duration", time.Since(start))
	if stats := dashboard.Stats(); stats["rejected_rows"] != 0 {
		logger.Warn("some rows were skipped", "rejected_rows", stats["rejected_rows"])
	}

	srv := server.NewServer(dashboard, logger)
	limiter := middleware.NewRateLimiter(cfg.Security)
	gs := server.New(srv.Handler(cfg.Security, limiter), logger, cfg)

	gs.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down dashboard", "subscribers", dashboard.Notifier().Subscribers())
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.Run(gctx)
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		dashboard.SweepViews(gctx)
		return nil
	})
	if cfg.Data.Watch {
		g.Go(func() error {
			return dashboard.Watch(gctx, cfg.Data.File)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("application stopped gracefully")
	return nil
}
