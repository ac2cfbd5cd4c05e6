package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"
)

// ModuleCommandResolver maps a ModuleTask and the manifest path its worker
// must write to, to the child-process invocation that runs every one of
// the module's items (spec §4.8 step 3's module-level mode).
type ModuleCommandResolver func(task ModuleTask, resultsPath string) (command string, args []string)

// RunModules fans ModuleTasks out across a bounded worker pool exactly
// like Run does for items, except each child process is itself
// responsible for a whole module: a crash in one module's worker cannot
// affect another module's items, and every item inside still gets its own
// subprocess and 300s budget courtesy of the module worker's own
// TaskRunner (internal/cli's module-worker command). This is the real
// architectural unit ModeModule promises, not merely a different worker
// count fed into the per-item loop Run uses.
func (d *Dispatcher) RunModules(ctx context.Context, tasks []ModuleTask, resolve ModuleCommandResolver) []ModuleResult {
	if d.Workers <= 0 {
		d.Workers = 1
	}

	perItemTimeout := d.Runner.Timeout
	if perItemTimeout <= 0 {
		perItemTimeout = DefaultItemTimeout
	}

	results := make([]ModuleResult, len(tasks))
	sem := make(chan struct{}, d.Workers)

	var mu sync.Mutex
	var completed, passed, failed int
	start := time.Now()
	totalItems := 0
	for _, task := range tasks {
		totalItems += len(task.ItemIDs)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			defer func() { <-sem }()

			resultsPath := ModuleResultsPath(d.Runner.WorkDir, task.Module)
			command, args := resolve(task, resultsPath)
			moduleItem := Item{Module: task.Module, ItemID: task.Module}
			timeout := moduleTimeout(len(task.ItemIDs), perItemTimeout)
			taskResult := d.Runner.RunWithTimeout(gctx, moduleItem, timeout, command, args...)

			outcomes, manifestErr := ReadResultsManifest(resultsPath)
			moduleResult := ModuleResult{Module: task.Module, Task: taskResult, Outcomes: outcomes, ManifestErr: manifestErr}
			results[i] = moduleResult

			mu.Lock()
			completed += len(task.ItemIDs)
			for _, tr := range moduleResult.Expand(task.ItemIDs) {
				if tr.Passed() {
					passed++
				} else {
					failed++
				}
			}
			snapshot := Progress{
				Total:     totalItems,
				Completed: completed,
				Passed:    passed,
				Failed:    failed,
				Elapsed:   time.Since(start),
			}
			mu.Unlock()

			logModuleResult(task, taskResult, manifestErr)
			if d.OnProgress != nil {
				d.OnProgress(snapshot)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ExpandAll flattens ModuleResults back into item-ordered TaskResults,
// keyed by the ModuleTasks that produced them (same order/length as
// tasks). Use this to feed module-mode results into the same aggregation
// path item-mode uses.
func ExpandAll(tasks []ModuleTask, results []ModuleResult) []TaskResult {
	var all []TaskResult
	for i, task := range tasks {
		all = append(all, results[i].Expand(task.ItemIDs)...)
	}
	return all
}

func logModuleResult(task ModuleTask, result TaskResult, manifestErr error) {
	msg := "module worker finished"
	ev := log.Info()
	if !result.Passed() || manifestErr != nil {
		ev = log.Warn()
		msg = "[WARN] module worker finished abnormally"
	}
	ev.Str("module", task.Module).
		Int("items", len(task.ItemIDs)).
		Int("exit_code", result.ExitCode).
		Bool("timedout", result.Timedout).
		Dur("duration", result.Duration).
		AnErr("manifest_error", manifestErr).
		Msg(msg)
}
