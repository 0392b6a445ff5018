// Package cli provides the salesdash command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/version"
)

type configKey struct{}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "salesdash",
		Short: "Sales dashboard over a spreadsheet of transactions",
		Long: `salesdash loads a sales transaction sheet (xlsx, csv or a Google
spreadsheet) and serves an interactive dashboard of revenue KPIs, monthly
trends, leaderboards and category breakdowns filtered by company and brand.`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to read .env: %w", err)
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./salesdash.yaml)")
	pf.String("source", "", "Data source (file|sheets)")
	pf.StringP("data", "d", "", "Path to the .xlsx or .csv transaction file")
	pf.String("sheet", "", "Worksheet name in an xlsx workbook (default: first sheet)")
	pf.Bool("strict", false, "Fail the load on the first malformed row")
	pf.String("cache-dir", "", "Directory for the parsed data cache (empty disables it)")
	pf.String("spreadsheet", "", "Google spreadsheet id for the sheets source")
	pf.String("range", "", "A1 range to read from the spreadsheet")
	pf.String("credentials", "", "Service account credentials file for the sheets source")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (json|text)")
	pf.Int("top", 0, "Number of entries in the leaderboards")

	_ = rootCmd.RegisterFlagCompletionFunc("source", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.SourceFile, config.SourceSheets}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newReportCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig retrieves the config stored by the root command.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return nil
}
