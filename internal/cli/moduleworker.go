package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/checkflow/checkflow/internal/dispatch"
)

// moduleWorkerFlags backs the hidden module-worker command: the re-invoked
// process a module-level dispatch (spec §4.8 step 3) uses to run every
// item of one module from inside a single child, the real per-module
// crash-isolation boundary "module mode" names.
var moduleWorkerFlags struct {
	root        string
	module      string
	items       []string
	resultsPath string
}

var moduleWorkerCmd = &cobra.Command{
	Use:    "module-worker",
	Short:  "Internal: run every item of one module in this process",
	Hidden: true,
	RunE:   runModuleWorker,
}

func init() {
	moduleWorkerCmd.Flags().StringVar(&moduleWorkerFlags.root, "root", "", "")
	moduleWorkerCmd.Flags().StringVar(&moduleWorkerFlags.module, "module", "", "")
	moduleWorkerCmd.Flags().StringArrayVar(&moduleWorkerFlags.items, "item", nil, "")
	moduleWorkerCmd.Flags().StringVar(&moduleWorkerFlags.resultsPath, "results", "", "")
	rootCmd.AddCommand(moduleWorkerCmd)
}

// runModuleWorker runs every item assigned to it as its own per-item
// checker subprocess, sequentially within this one process, and writes a
// results manifest the parent dispatcher reads back. Each item still gets
// its own 300s-bounded child (spec §9's per-item isolation); this process
// is the module-level isolation boundary around that loop.
func runModuleWorker(cmd *cobra.Command, args []string) error {
	workDir := filepath.Join(moduleWorkerFlags.root, "Work")
	runner := dispatch.NewTaskRunner(workDir)

	outcomes := make([]dispatch.ItemOutcome, 0, len(moduleWorkerFlags.items))
	exitCode := 0
	for _, itemID := range moduleWorkerFlags.items {
		item := dispatch.Item{Module: moduleWorkerFlags.module, ItemID: itemID}
		command := filepath.Join(moduleWorkerFlags.root, "Check_modules", item.Module, "scripts", "checker", item.ItemID)
		result := runner.Run(cmd.Context(), item, command)

		outcomes = append(outcomes, dispatch.ItemOutcome{
			ItemID:   itemID,
			ExitCode: result.ExitCode,
			Timedout: result.Timedout,
		})
		if !result.Passed() && exitCode == 0 {
			exitCode = result.ExitCode
			if exitCode == 0 {
				exitCode = 1
			}
		}
	}

	if err := dispatch.WriteResultsManifest(moduleWorkerFlags.resultsPath, outcomes); err != nil {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	if exitCode != 0 {
		return &ExitError{Code: exitCode}
	}
	return nil
}
