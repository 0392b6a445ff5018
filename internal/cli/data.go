package cli

import (
	"context"
	"fmt"
	"log/slog"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/loader"
	"sales-dashboard/internal/services"
)

// newLoadFunc builds the table loader for the configured data source.
func newLoadFunc(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.LoadFunc, error) {
	l := loader.New(loader.Options{
		Strict:   cfg.Data.Strict,
		CacheDir: cfg.Data.CacheDir,
		Sheet:    cfg.Data.Sheet,
		Logger:   logger,
	})

	switch cfg.Data.Source {
	case config.SourceSheets:
		src, err := loader.NewSheetsSource(ctx, loader.SheetsConfig{
			SpreadsheetID:   cfg.Data.SpreadsheetID,
			Range:           cfg.Data.Range,
			CredentialsFile: cfg.Data.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets source: %w", err)
		}
		return func(ctx context.Context) (*loader.Table, *loader.Report, error) {
			return l.LoadSource(ctx, src)
		}, nil
	default:
		path := cfg.Data.File
		return func(ctx context.Context) (*loader.Table, *loader.Report, error) {
			return l.LoadFile(ctx, path)
		}, nil
	}
}

func logReport(logger *slog.Logger, rep *loader.Report) {
	if rep == nil {
		return
	}
	logger.Info("load report",
		"source", rep.Source,
		"rows", rep.Rows,
		"accepted", rep.Accepted,
		"rejected", len(rep.Rejected),
		"cached", rep.Cached,
		"duration", rep.Duration,
	)
}
