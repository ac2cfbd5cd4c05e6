package dispatch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/checkflow/checkflow/internal/format"
)

// ModuleTask is the dispatch unit for module-level mode (spec §4.8 step 3):
// one child process is responsible for every item belonging to a single
// module, grounded on check_flowtool.py's run_module_runner spawning one
// process per module rather than per item.
type ModuleTask struct {
	Module  string
	ItemIDs []string
}

// GroupByModule buckets items by module, preserving first-seen module
// order.
func GroupByModule(items []Item) []ModuleTask {
	var order []string
	byModule := make(map[string][]string)
	for _, item := range items {
		if _, ok := byModule[item.Module]; !ok {
			order = append(order, item.Module)
		}
		byModule[item.Module] = append(byModule[item.Module], item.ItemID)
	}
	tasks := make([]ModuleTask, 0, len(order))
	for _, module := range order {
		tasks = append(tasks, ModuleTask{Module: module, ItemIDs: byModule[module]})
	}
	return tasks
}

// ItemOutcome is one item's result as reported by a module worker process,
// serialized to the results manifest so the parent dispatcher can recover
// per-item fidelity even though the whole module ran as a single child.
type ItemOutcome struct {
	ItemID   string `json:"item_id"`
	ExitCode int    `json:"exit_code"`
	Timedout bool   `json:"timedout"`
}

// Passed mirrors TaskResult.Passed for a manifest entry.
func (o ItemOutcome) Passed() bool { return !o.Timedout && o.ExitCode == 0 }

// ModuleResultsPath returns the manifest path a module worker for module
// writes its outcomes to and the parent dispatcher reads back, rooted at
// workDir (spec §4.8 step 3).
func ModuleResultsPath(workDir, module string) string {
	return filepath.Join(workDir, "module-results", module+".json")
}

// WriteResultsManifest atomically writes a module worker's per-item
// outcomes, reusing internal/format.WriteAtomic's temp-file-then-rename
// discipline so the parent never observes a partial manifest.
func WriteResultsManifest(path string, outcomes []ItemOutcome) error {
	data, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	return format.WriteAtomic(path, string(data))
}

// ReadResultsManifest reads back a module worker's outcomes. A missing or
// unparseable manifest (e.g. the worker crashed before writing one) is
// reported via the error return so the caller can fail every item in that
// module closed rather than silently dropping them.
func ReadResultsManifest(path string) ([]ItemOutcome, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is derived from a discovered module name, not user input
	if err != nil {
		return nil, err
	}
	var outcomes []ItemOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// ModuleResult is one ModuleTask's outcome: the module worker process's own
// TaskResult plus (if it wrote one before exiting) its per-item manifest.
type ModuleResult struct {
	Module      string
	Task        TaskResult
	Outcomes    []ItemOutcome
	ManifestErr error
}

// Expand converts a ModuleResult back into one TaskResult per item,
// matching Dispatcher.Run's item-mode shape so downstream aggregation
// doesn't need to know which mode produced the results. expectedItemIDs is
// the ModuleTask's full item list: any id missing from the manifest
// (worker crashed, timed out, or never reached it before exiting) is
// reported as failed, carrying the worker process's own error/timeout as
// the closest available signal for "this item's outcome is unknown".
func (m ModuleResult) Expand(expectedItemIDs []string) []TaskResult {
	byItemID := make(map[string]ItemOutcome, len(m.Outcomes))
	for _, outcome := range m.Outcomes {
		byItemID[outcome.ItemID] = outcome
	}

	results := make([]TaskResult, 0, len(expectedItemIDs))
	for _, itemID := range expectedItemIDs {
		item := Item{Module: m.Module, ItemID: itemID}
		if outcome, ok := byItemID[itemID]; ok {
			results = append(results, TaskResult{
				Item:     item,
				ExitCode: outcome.ExitCode,
				Timedout: outcome.Timedout,
				Duration: m.Task.Duration,
			})
			continue
		}
		results = append(results, TaskResult{
			Item:     item,
			ExitCode: 1,
			Timedout: m.Task.Timedout,
			Err:      m.ManifestErr,
			Duration: m.Task.Duration,
		})
	}
	return results
}

// moduleTimeout scales the module worker's own wall-clock budget with its
// item count: each item still gets perItemTimeout internally, so the
// wrapping module process needs at least that much times the item count,
// plus headroom for process startup between items.
func moduleTimeout(itemCount int, perItemTimeout time.Duration) time.Duration {
	if itemCount <= 0 {
		itemCount = 1
	}
	return time.Duration(itemCount)*perItemTimeout + 10*time.Second
}
