// Package checker implements the per-item checker lifecycle (spec §4.6):
// load configuration, validate inputs, invoke the concrete check, persist
// artifacts, publish to the result cache, and translate the outcome into
// an exit code.
package checker

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/checkflow/checkflow/internal/format"
	"github.com/checkflow/checkflow/internal/itemconfig"
	"github.com/checkflow/checkflow/internal/xerrors"
	"github.com/checkflow/checkflow/pkg/models"
)

// Exit codes a checker process returns, per spec §6's child-checker
// contract.
const (
	ExitPass          = 0
	ExitFail          = 1
	ExitConfigError   = 2
	ExitUnexpectedErr = 3
)

// Checker is implemented by every concrete check item. validInputFiles is
// the already-resolved, already-existence-checked subset of
// cfg.InputFiles.
type Checker interface {
	ExecuteCheck(cfg models.ItemConfig, validInputFiles []string) models.CheckResult
}

// ExecuteCheckFunc adapts a plain function to the Checker interface.
type ExecuteCheckFunc func(cfg models.ItemConfig, validInputFiles []string) models.CheckResult

func (f ExecuteCheckFunc) ExecuteCheck(cfg models.ItemConfig, validInputFiles []string) models.CheckResult {
	return f(cfg, validInputFiles)
}

// Paths collects the filesystem locations one item's run() needs.
type Paths struct {
	ChecklistRoot string // substituted for ${CHECKLIST_ROOT} in input_files
	ItemsDir      string // Check_modules/<module>/inputs/items
	LogPath       string // Check_modules/<module>/outputs/logs/<item_id>.log
	ReportPath    string // Check_modules/<module>/outputs/reports/<item_id>.rpt
}

// NewPaths builds the canonical per-item paths under moduleRoot (spec §6's
// filesystem layout).
func NewPaths(moduleRoot, checklistRoot, itemID string) Paths {
	return Paths{
		ChecklistRoot: checklistRoot,
		ItemsDir:      filepath.Join(moduleRoot, "inputs", "items"),
		LogPath:       filepath.Join(moduleRoot, "outputs", "logs", itemID+".log"),
		ReportPath:    filepath.Join(moduleRoot, "outputs", "reports", itemID+".rpt"),
	}
}

// Cache is the subset of internal/cache.Cache the lifecycle needs, kept as
// an interface so tests can run without a real cache.
type Cache interface {
	Set(itemID string, result models.CheckResult)
}

// Outcome is everything run() decided: the result, the exit code that
// should be returned by the calling process, and (if step 4 panicked) the
// recovered error.
type Outcome struct {
	Result   models.CheckResult
	ExitCode int
	Err      error
}

// Run executes the full lifecycle for one (module, item) pair: load
// config, validate inputs, invoke c.ExecuteCheck, write log+report,
// publish to cache, and decide the exit code (spec §4.6 steps 1-7).
//
// Within one item, steps run strictly serially: parsing, execute_check,
// write log, write report, and cache publish never interleave with
// another item's work (spec §5).
func Run(c Checker, module, itemID string, paths Paths, resultCache Cache) Outcome {
	cfg, err := itemconfig.Load(paths.ItemsDir, module, itemID)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("failed to load item config")
		return configErrorOutcome(itemID, models.CheckResult{BasicErrors: []string{
			fmt.Sprintf("[CONFIG_ERROR]: %v", err),
		}}, paths)
	}

	valid, missing := itemconfig.ValidateInputFiles(cfg, paths.ChecklistRoot)
	if len(missing) > 0 {
		log.Warn().Str("item_id", itemID).Strs("missing", missing).Msg("missing input files")
		return configErrorOutcome(itemID, itemconfig.MissingFilesError(cfg, missing), paths)
	}

	result, execErr := invoke(c, cfg, valid)
	if execErr != nil {
		log.Error().Err(execErr).Str("item_id", itemID).Msg("execute_check panicked")
		result = executionErrorResult(cfg, execErr)
		writeArtifacts(itemID, paths, result)
		publish(resultCache, itemID, result)
		return Outcome{Result: result, ExitCode: ExitUnexpectedErr, Err: execErr}
	}

	writeArtifacts(itemID, paths, result)
	publish(resultCache, itemID, result)

	exitCode := ExitFail
	if result.IsPass {
		exitCode = ExitPass
	}
	return Outcome{Result: result, ExitCode: exitCode}
}

// invoke calls c.ExecuteCheck, converting a panic into an error rather
// than letting it cross the dispatcher's child-process boundary (spec
// §4.6 step 7, exit code 3).
func invoke(c Checker, cfg models.ItemConfig, valid []string) (result models.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &xerrors.ExecutionError{Message: "panic in execute_check", ItemID: cfg.ItemID, ErrorType: "execute", Cause: fmt.Errorf("%v", r)}
		}
	}()
	return c.ExecuteCheck(cfg, valid), nil
}

func executionErrorResult(cfg models.ItemConfig, err error) models.CheckResult {
	return models.CheckResult{
		ItemDesc: cfg.ItemDesc,
		Value:    models.ErrorValue(),
		ErrorGroups: models.GroupMap{
			"ERROR01": {Description: "Unexpected error", Items: []string{err.Error()}},
		},
	}
}

func configErrorOutcome(itemID string, result models.CheckResult, paths Paths) Outcome {
	writeArtifacts(itemID, paths, result)
	return Outcome{Result: result, ExitCode: ExitConfigError}
}

func writeArtifacts(itemID string, paths Paths, result models.CheckResult) {
	if err := format.WriteItemArtifacts(itemID, paths.LogPath, paths.ReportPath, result); err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("failed to write check artifacts")
	}
}

func publish(c Cache, itemID string, result models.CheckResult) {
	if c == nil {
		return
	}
	c.Set(itemID, result)
}
