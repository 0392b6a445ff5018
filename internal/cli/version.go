package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"sales-dashboard/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "salesdash %s (commit %s, %s)\n", version.Version, version.Commit, runtime.Version())
		},
	}
}
