// Package cli implements the checkflow command-line interface (spec §6).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/checkflow/checkflow/internal/version"
)

// ExitError represents an operation that completed but needs a specific
// exit code distinct from cobra's generic failure (spec §6's exit-code
// table).
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

var rootCmd = &cobra.Command{
	Use:   "checkflow",
	Short: "VLSI check orchestration engine",
	Long: `checkflow loads per-item check configurations under Check_modules/,
dispatches each configured item's checker, and aggregates the results
into module summaries and a combined log/report.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = version.String()
}
