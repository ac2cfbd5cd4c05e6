package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"
)

// CommandResolver maps an Item to the child-process invocation that
// executes its checker (spec §6: "Check_modules/<module>/scripts/checker/
// <item_id>.py # checker program (or native binary)").
type CommandResolver func(item Item) (command string, args []string)

// Progress is a live snapshot of the fan-out's state (spec §4.8,
// "Progress").
type Progress struct {
	Total     int
	Completed int
	Passed    int
	Failed    int
	Elapsed   time.Duration
}

// AvgDuration is the mean per-task wall-clock time so far.
func (p Progress) AvgDuration() time.Duration {
	if p.Completed == 0 {
		return 0
	}
	return p.Elapsed / time.Duration(p.Completed)
}

// ProgressFunc is called after every task completes.
type ProgressFunc func(Progress)

// Dispatcher fans a list of items out across a bounded worker pool,
// enforcing the per-item timeout and reporting live progress (spec §4.8's
// "Fan-out" and "Progress" subsections).
type Dispatcher struct {
	Runner     *TaskRunner
	Resolve    CommandResolver
	Workers    int
	OnProgress ProgressFunc
}

// Run dispatches every item in items through d.Runner, bounded to
// d.Workers concurrent children, and returns one TaskResult per item.
// Dispatch blocks only at task submission/completion (spec §5); the only
// cancellation that reaches already-running children is ctx's own, which
// d.Runner passes to each child process.
func (d *Dispatcher) Run(ctx context.Context, items []Item) []TaskResult {
	if d.Workers <= 0 {
		d.Workers = 1
	}

	results := make([]TaskResult, len(items))
	sem := make(chan struct{}, d.Workers)

	var mu sync.Mutex
	var completed, passed, failed int
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			defer func() { <-sem }()

			command, args := d.Resolve(item)
			result := d.Runner.Run(gctx, item, command, args...)
			results[i] = result

			mu.Lock()
			completed++
			if result.Passed() {
				passed++
			} else {
				failed++
			}
			snapshot := Progress{
				Total:     len(items),
				Completed: completed,
				Passed:    passed,
				Failed:    failed,
				Elapsed:   time.Since(start),
			}
			mu.Unlock()

			logTaskResult(item, result)
			if d.OnProgress != nil {
				d.OnProgress(snapshot)
			}
			return nil
		})
	}
	// Fan-out errors are already captured per-task in TaskResult; g.Wait
	// only ever returns nil because task goroutines never propagate an
	// error (a failing child is a recorded result, not a dispatch failure).
	_ = g.Wait()

	return results
}

func logTaskResult(item Item, result TaskResult) {
	msg := "checker finished"
	ev := log.Info()
	if !result.Passed() {
		ev = log.Warn()
		msg = "[WARN] checker failed"
	}
	ev.Str("module", item.Module).
		Str("item_id", item.ItemID).
		Int("exit_code", result.ExitCode).
		Bool("timedout", result.Timedout).
		Dur("duration", result.Duration).
		Msg(msg)
}

// FailureSummary renders up to the first 10 failed items by name (spec
// §4.8's "Failure summary prints up to 10 failed items by name").
func FailureSummary(results []TaskResult) []string {
	var failures []string
	for _, r := range results {
		if r.Passed() {
			continue
		}
		reason := fmt.Sprintf("exit=%d", r.ExitCode)
		if r.Timedout {
			reason = "Checker timed out (5min)"
		} else if r.Err != nil {
			reason = r.Err.Error()
		}
		failures = append(failures, fmt.Sprintf("%s/%s: %s", r.Item.Module, r.Item.ItemID, reason))
		if len(failures) == 10 {
			break
		}
	}
	return failures
}

// ExitCode is spec §4.8's "0 iff every item/module returned 0; otherwise
// the first non-zero code observed" rule, applied in item order.
func ExitCode(results []TaskResult) int {
	for _, r := range results {
		if r.ExitCode != 0 {
			return r.ExitCode
		}
	}
	return 0
}
