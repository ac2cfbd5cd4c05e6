// Package aggregate implements the dispatcher's deterministic
// post-fan-out phase (spec §4.8, "After fan-out"): concatenating
// per-item logs and reports, writing a per-module summary, and handing
// that summary to a best-effort spreadsheet aggregator.
package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rs/zerolog/log"

	"github.com/checkflow/checkflow/internal/format"
)

// ConcatenateFiles reads each of paths in order and writes their
// concatenation atomically to outPath (spec §4.8 steps 1-2: aggregated
// CheckList.log / CheckList.rpt). A missing source file (e.g. a timed-out
// item that produced no artifact) is skipped, not an error.
func ConcatenateFiles(paths []string, outPath string) error {
	var combined []byte
	for _, p := range paths {
		data, err := os.ReadFile(p) // #nosec G304 - paths are dispatcher-computed item artifact paths
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read %s: %w", p, err)
		}
		combined = append(combined, data...)
	}
	return format.WriteAtomic(outPath, string(combined))
}

// ItemOutcome is one item's contribution to a module summary.
type ItemOutcome struct {
	ItemID      string `yaml:"item_id"`
	Passed      bool   `yaml:"passed"`
	ConfigError bool   `yaml:"config_error"`
	Missing     bool   `yaml:"missing"` // true when the item produced no artifact (timeout or skipped)
}

// ModuleSummary is the per-module structured summary written to
// Check_modules/<module>/outputs/<module>.yaml (spec §6).
type ModuleSummary struct {
	Module    string        `yaml:"module"`
	Total     int           `yaml:"total"`
	Passed    int           `yaml:"passed"`
	Failed    int           `yaml:"failed"`
	Items     []ItemOutcome `yaml:"items"`
}

// BuildModuleSummary folds outcomes into the module-level totals, in
// outcomes' original order.
func BuildModuleSummary(module string, outcomes []ItemOutcome) ModuleSummary {
	summary := ModuleSummary{Module: module, Items: outcomes, Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// WriteModuleSummary marshals summary to YAML and writes it atomically
// (spec §4.8 step 3). Failure here is best-effort: callers should log and
// continue rather than fail the run (spec §7's "Aggregator failure").
func WriteModuleSummary(summary ModuleSummary, outPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal module summary: %w", err)
	}
	return format.WriteAtomic(outPath, string(data))
}

// BestEffort runs fn and, on error, logs a [WARN] and swallows it rather
// than failing the dispatcher (spec §4.8: "Steps 3-5 are best-effort").
func BestEffort(step string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("step", step).Msg("[WARN] aggregation step failed, continuing")
	}
}

// SortedModules returns modules with a deterministic iteration order for
// any caller that accumulated them in a map.
func SortedModules(summaries map[string]ModuleSummary) []string {
	names := make([]string, 0, len(summaries))
	for m := range summaries {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// ResultsDir is the subdirectory of Work/ holding aggregated spreadsheet
// output (spec §6).
func ResultsDir(workDir string) string {
	return filepath.Join(workDir, "Results")
}
