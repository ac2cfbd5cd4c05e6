package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/checkflow/checkflow/internal/aggregate"
	"github.com/checkflow/checkflow/internal/cache"
	"github.com/checkflow/checkflow/internal/config"
	"github.com/checkflow/checkflow/internal/dispatch"
	"github.com/checkflow/checkflow/internal/format"
	"github.com/checkflow/checkflow/pkg/models"
)

// Exit codes for the run command, per spec §6's CLI surface.
const (
	exitSuccess          = 0
	exitRootNotFound     = 2
	exitConfigLoadFailed = 3
	exitUnknownModule    = 4
	exitNoModules        = 5
)

var runFlags struct {
	root             string
	stage            string
	checkModule      string
	checkItems       []string
	serial           bool
	itemParallel     bool
	useModuleRunners bool
	skipDistribution bool
	enableFileCache  bool
	cacheDir         string
	maxCacheSize     int
	showCacheStats   bool
	configFile       string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover and dispatch configured check items",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.root, "root", "", "Project root containing Check_modules/ (required)")
	runCmd.Flags().StringVar(&runFlags.stage, "stage", "", "Stage tag for this run")
	runCmd.Flags().StringVar(&runFlags.checkModule, "check_module", "", "Restrict the run to one module")
	runCmd.Flags().StringArrayVar(&runFlags.checkItems, "check_item", nil, "Restrict the run to specific item ids (repeatable)")
	runCmd.Flags().BoolVar(&runFlags.serial, "serial", false, "Force serial execution")
	runCmd.Flags().BoolVar(&runFlags.itemParallel, "item-parallel", false, "Force item-level parallelism")
	runCmd.Flags().BoolVar(&runFlags.useModuleRunners, "use-module-runners", false, "Force module-level parallelism")
	runCmd.Flags().BoolVar(&runFlags.skipDistribution, "skip_distribution", false, "Skip the DATA_INTERFACE distribution step")
	runCmd.Flags().BoolVar(&runFlags.enableFileCache, "enable-file-cache", false, "Enable the file-backed result cache tier")
	runCmd.Flags().StringVar(&runFlags.cacheDir, "cache-dir", "", "Directory for the file-backed cache")
	runCmd.Flags().IntVar(&runFlags.maxCacheSize, "max-cache-size", 0, "Override the in-memory cache's max entries")
	runCmd.Flags().BoolVar(&runFlags.showCacheStats, "show-cache-stats", false, "Print cache hit/miss/eviction statistics after the run")
	runCmd.Flags().StringVarP(&runFlags.configFile, "config", "c", "", "Path to checkflow.yaml")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFlags.root == "" {
		return &ExitError{Code: exitRootNotFound, Message: "-root is required"}
	}
	if _, err := os.Stat(runFlags.root); err != nil {
		return &ExitError{Code: exitRootNotFound, Message: fmt.Sprintf("root not found: %s", runFlags.root)}
	}

	cfg, err := loadProjectConfig(runFlags.configFile, runFlags.root)
	if err != nil {
		return &ExitError{Code: exitConfigLoadFailed, Message: err.Error()}
	}

	flags := dispatch.Flags{
		Serial:           runFlags.serial,
		ItemParallel:     runFlags.itemParallel,
		UseModuleRunners: runFlags.useModuleRunners,
		SkipDistribution: runFlags.skipDistribution,
		EnableFileCache:  runFlags.enableFileCache || cfg.Cache.Enabled,
		CacheDir:         firstNonEmpty(runFlags.cacheDir, cfg.Cache.FileCacheDir),
		MaxCacheSize:     firstPositive(runFlags.maxCacheSize, cfg.Cache.MaxEntries),
	}

	if runFlags.checkModule != "" {
		modules, err := dispatch.DiscoverModules(runFlags.root)
		if err != nil {
			return &ExitError{Code: exitUnknownModule, Message: err.Error()}
		}
		if !contains(modules, runFlags.checkModule) {
			return &ExitError{Code: exitUnknownModule, Message: fmt.Sprintf("unknown module: %s", runFlags.checkModule)}
		}
	}

	items, err := dispatch.DiscoverAll(runFlags.root, runFlags.checkModule, runFlags.checkItems)
	if err != nil {
		return &ExitError{Code: exitUnknownModule, Message: err.Error()}
	}
	if len(items) == 0 {
		return &ExitError{Code: exitNoModules, Message: "no modules configured"}
	}

	workDir := filepath.Join(runFlags.root, "Work")
	if runFlags.stage != "" {
		workDir = filepath.Join(workDir, runFlags.stage)
	}
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return &ExitError{Code: exitConfigLoadFailed, Message: fmt.Sprintf("cannot create work dir: %v", err)}
	}

	// Wire the dispatcher's progress logging through Work/Checkflow.log
	// before anything else logs, so every line in this run - including the
	// cleanup warning below - is mirrored (spec §4.8: "a TeeLogger in the
	// parent mirrors parent-side progress to Work/Checkflow.log and,
	// filtered, to the terminal").
	teeLogger, teeErr := dispatch.NewTeeLogger(filepath.Join(workDir, "Checkflow.log"), os.Args)
	if teeErr == nil {
		defer teeLogger.Close()
		log.Logger = log.Output(teeLogger)
	}

	if err := cleanArtifacts(workDir); err != nil {
		log.Warn().Err(err).Msg("[WARN] failed to clean previous artifacts")
	}

	fileCacheDir := ""
	if flags.EnableFileCache {
		fileCacheDir = flags.CacheDir
	}
	resultCache := cache.New(flags.MaxCacheSize, fileCacheDir)

	moduleCount := countModules(items)
	mode := dispatch.DecideMode(flags, moduleCount)
	workers := dispatch.WorkerCount(mode, moduleCount, len(items), dispatch.CPUCount())
	log.Info().Msg(fmt.Sprintf("[INFO] Execution mode: %s", mode))
	log.Info().Msg(fmt.Sprintf("Executing checkers: %d items across %d module(s)", len(items), moduleCount))

	runner := dispatch.NewTaskRunner(workDir)
	runner.Timeout = cfg.ItemTimeout.AsDuration()
	d := &dispatch.Dispatcher{
		Runner:  runner,
		Workers: workers,
		Resolve: func(item dispatch.Item) (string, []string) {
			return filepath.Join(runFlags.root, "Check_modules", item.Module, "scripts", "checker", item.ItemID), nil
		},
	}

	var results []dispatch.TaskResult
	if mode == dispatch.ModeModule {
		results = runModuleMode(d, runFlags.root, items)
	} else {
		results = runWithCache(d, resultCache, items)
	}

	if failures := dispatch.FailureSummary(results); len(failures) > 0 {
		log.Warn().Strs("failures", failures).Msg("[WARN] check items failed")
	}
	passed := 0
	for _, r := range results {
		if r.Passed() {
			passed++
		}
	}
	log.Info().Msg(fmt.Sprintf("Execution summary: %d passed, %d failed", passed, len(results)-passed))

	runAggregation(runFlags.root, workDir, items, results)

	if runFlags.showCacheStats {
		stats := resultCache.Stats()
		fmt.Fprintf(os.Stderr, "cache: hits=%d misses=%d evictions=%d hit_rate=%.2f\n",
			stats.Hits, stats.Misses, stats.Evictions, stats.HitRate())
	}

	if code := dispatch.ExitCode(results); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// runModuleMode dispatches one child process per module (spec §4.8 step
// 3's module-level mode), re-invoking this same binary's hidden
// module-worker command to run every item belonging to that module, then
// expands each module's results manifest back into item-ordered
// TaskResults. Unlike item mode, the in-process result cache is not
// consulted here: a module worker owns its items end to end, the same way
// check_flowtool.py's run_module_runner does.
func runModuleMode(d *dispatch.Dispatcher, root string, items []dispatch.Item) []dispatch.TaskResult {
	tasks := dispatch.GroupByModule(items)
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}

	resolve := func(task dispatch.ModuleTask, resultsPath string) (string, []string) {
		args := []string{"module-worker", "--root", root, "--module", task.Module, "--results", resultsPath}
		for _, itemID := range task.ItemIDs {
			args = append(args, "--item", itemID)
		}
		return self, args
	}

	moduleResults := d.RunModules(context.Background(), tasks, resolve)

	byKey := make(map[string]dispatch.TaskResult, len(items))
	for _, tr := range dispatch.ExpandAll(tasks, moduleResults) {
		byKey[tr.Item.Module+"/"+tr.Item.ItemID] = tr
	}

	results := make([]dispatch.TaskResult, len(items))
	for i, item := range items {
		results[i] = byKey[item.Module+"/"+item.ItemID]
	}
	return results
}

// runWithCache consults resultCache for each item before dispatching it, so
// an item_id seen in a prior run (memory or file tier) is reused instead of
// re-spawning its checker. Results are returned in the same order as items.
func runWithCache(d *dispatch.Dispatcher, resultCache *cache.Cache, items []dispatch.Item) []dispatch.TaskResult {
	toRun := make([]dispatch.Item, 0, len(items))
	cached := make(map[string]models.CheckResult, len(items))
	for _, item := range items {
		if result, ok := resultCache.Get(item.ItemID); ok {
			cached[item.ItemID] = result
			continue
		}
		toRun = append(toRun, item)
	}

	ran := d.Run(context.Background(), toRun)
	for i, item := range toRun {
		resultCache.Set(item.ItemID, models.CheckResult{IsPass: ran[i].Passed()})
	}

	results := make([]dispatch.TaskResult, len(items))
	ranIdx := 0
	for i, item := range items {
		if result, ok := cached[item.ItemID]; ok {
			exitCode := 0
			if !result.IsPass {
				exitCode = 1
			}
			results[i] = dispatch.TaskResult{Item: item, ExitCode: exitCode}
			continue
		}
		results[i] = ran[ranIdx]
		ranIdx++
	}
	return results
}

// loadProjectConfig loads checkflow.yaml if an explicit path is given or one
// exists under root; otherwise it falls back to defaults derived from -root,
// since a project config file is optional when every setting is passed on
// the command line.
func loadProjectConfig(explicitPath, root string) (*config.Config, error) {
	if explicitPath != "" {
		return config.Load(explicitPath)
	}
	for _, name := range config.ConfigFileNames {
		candidate := filepath.Join(root, name)
		if _, err := os.Stat(candidate); err == nil {
			return config.Load(candidate)
		}
	}
	return &config.Config{
		Version:       "1",
		ChecklistRoot: root,
		Parallel:      config.DefaultParallel,
		ItemTimeout:   config.Duration(config.DefaultItemTimeout),
		ErrorExitCode: config.DefaultErrorExitCode,
		Cache:         config.CacheConfig{MaxEntries: config.DefaultMaxCacheEntries},
	}, nil
}

func runAggregation(root, workDir string, items []dispatch.Item, results []dispatch.TaskResult) {
	byModule := make(map[string][]aggregate.ItemOutcome)
	var logPaths, reportPaths []string
	for i, item := range items {
		result := results[i]
		logPath := filepath.Join(root, "Check_modules", item.Module, "outputs", "logs", item.ItemID+".log")
		reportPath := filepath.Join(root, "Check_modules", item.Module, "outputs", "reports", item.ItemID+".rpt")
		logPaths = append(logPaths, logPath)
		reportPaths = append(reportPaths, reportPath)
		byModule[item.Module] = append(byModule[item.Module], itemOutcomeFromLog(logPath, item.ItemID, result))
	}

	aggregate.BestEffort("concatenate-logs", func() error {
		return aggregate.ConcatenateFiles(logPaths, filepath.Join(workDir, "CheckList.log"))
	})
	aggregate.BestEffort("concatenate-reports", func() error {
		return aggregate.ConcatenateFiles(reportPaths, filepath.Join(workDir, "CheckList.rpt"))
	})

	var summaries []aggregate.ModuleSummary
	excel := aggregate.FlatTextAggregator{}
	for _, module := range aggregate.SortedModules(toSummaryMap(byModule)) {
		summary := aggregate.BuildModuleSummary(module, byModule[module])
		summaries = append(summaries, summary)
		aggregate.BestEffort("write-module-summary", func() error {
			return aggregate.WriteModuleSummary(summary, filepath.Join(root, "Check_modules", module, "outputs", module+".yaml"))
		})
		aggregate.BestEffort("write-module-excel", func() error {
			return excel.WriteModuleSheet(summary, filepath.Join(root, "Check_modules", module, "outputs", module+".csv"))
		})
	}

	resultsDir := aggregate.ResultsDir(workDir)
	aggregate.BestEffort("write-aggregated-excel", func() error {
		return excel.WriteAggregatedSheets(summaries, filepath.Join(resultsDir, "Origin.xlsx"), filepath.Join(resultsDir, "Summary.xlsx"))
	})
}

// itemOutcomeFromLog recovers an item's pass/fail/config-error verdict by
// parsing the log artifact its checker wrote (spec §4.8 step 3's per-module
// summary reads the per-item logs/reports, not the dispatcher's own
// in-process TaskResult bookkeeping). A missing or unparseable log -
// typically a timed-out or crashed checker that produced no artifact -
// falls back to the dispatcher's own TaskResult, the only signal left.
func itemOutcomeFromLog(logPath, itemID string, result dispatch.TaskResult) aggregate.ItemOutcome {
	data, err := os.ReadFile(logPath) // #nosec G304 - path is dispatcher-computed from a discovered item id
	if err != nil {
		return aggregate.ItemOutcome{ItemID: itemID, Passed: result.Passed(), Missing: true}
	}
	parsed, err := format.ParseLog(data)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("[WARN] failed to parse check log, falling back to exit status")
		return aggregate.ItemOutcome{ItemID: itemID, Passed: result.Passed(), Missing: result.Timedout}
	}
	return aggregate.ItemOutcome{
		ItemID:      itemID,
		Passed:      parsed.Passed(),
		ConfigError: parsed.IsConfigError(),
	}
}

func toSummaryMap(byModule map[string][]aggregate.ItemOutcome) map[string]aggregate.ModuleSummary {
	m := make(map[string]aggregate.ModuleSummary, len(byModule))
	for module := range byModule {
		m[module] = aggregate.ModuleSummary{}
	}
	return m
}

func cleanArtifacts(workDir string) error {
	for _, name := range []string{"CheckList.log", "CheckList.rpt"} {
		path := filepath.Join(workDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	resultsDir := aggregate.ResultsDir(workDir)
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		_ = os.RemoveAll(filepath.Join(resultsDir, e.Name()))
	}
	return nil
}

func countModules(items []dispatch.Item) int {
	seen := make(map[string]bool)
	for _, item := range items {
		seen[item.Module] = true
	}
	return len(seen)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstPositive(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
