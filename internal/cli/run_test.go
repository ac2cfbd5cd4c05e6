package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/checkflow/checkflow/internal/cache"
	"github.com/checkflow/checkflow/internal/config"
	"github.com/checkflow/checkflow/internal/dispatch"
	"github.com/checkflow/checkflow/pkg/models"
)

func TestLoadProjectConfigFallsBackToDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := loadProjectConfig("", root)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	if cfg.ChecklistRoot != root {
		t.Errorf("ChecklistRoot = %q, want %q", cfg.ChecklistRoot, root)
	}
	if cfg.Parallel != config.DefaultParallel {
		t.Errorf("Parallel = %d, want default", cfg.Parallel)
	}
}

func TestLoadProjectConfigReadsFileUnderRoot(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, "checkflow.yaml")
	writeFile(t, configPath, "version: \"1\"\nchecklist_root: "+root+"\nparallel: 8\n")

	cfg, err := loadProjectConfig("", root)
	if err != nil {
		t.Fatalf("loadProjectConfig: %v", err)
	}
	if cfg.Parallel != 8 {
		t.Errorf("Parallel = %d, want 8", cfg.Parallel)
	}
}

func TestLoadProjectConfigExplicitPathPropagatesErrors(t *testing.T) {
	if _, err := loadProjectConfig("/does/not/exist.yaml", t.TempDir()); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestContains(t *testing.T) {
	if !contains([]string{"IMP-1", "STA-1"}, "STA-1") {
		t.Error("expected STA-1 to be found")
	}
	if contains([]string{"IMP-1"}, "STA-1") {
		t.Error("did not expect STA-1 to be found")
	}
}

func TestFirstNonEmptyAndFirstPositive(t *testing.T) {
	if got := firstNonEmpty("", "fallback"); got != "fallback" {
		t.Errorf("firstNonEmpty = %q", got)
	}
	if got := firstNonEmpty("set", "fallback"); got != "set" {
		t.Errorf("firstNonEmpty = %q", got)
	}
	if got := firstPositive(0, 5); got != 5 {
		t.Errorf("firstPositive = %d", got)
	}
	if got := firstPositive(3, 5); got != 3 {
		t.Errorf("firstPositive = %d", got)
	}
}

func TestCountModules(t *testing.T) {
	items := []dispatch.Item{
		{Module: "IMP-1", ItemID: "a"},
		{Module: "IMP-1", ItemID: "b"},
		{Module: "STA-1", ItemID: "c"},
	}
	if got := countModules(items); got != 2 {
		t.Errorf("countModules = %d, want 2", got)
	}
}

func TestRunWithCacheReusesCachedResults(t *testing.T) {
	resultCache := cache.New(10, "")
	resultCache.Set("cached-item", models.CheckResult{IsPass: true})

	items := []dispatch.Item{
		{Module: "IMP-1", ItemID: "cached-item"},
		{Module: "IMP-1", ItemID: "fresh-item"},
	}
	workDir := t.TempDir()
	runner := dispatch.NewTaskRunner(workDir)
	d := &dispatch.Dispatcher{
		Runner:  runner,
		Workers: 2,
		Resolve: func(item dispatch.Item) (string, []string) {
			return "sh", []string{"-c", "exit 0"}
		},
	}

	results := runWithCache(d, resultCache, items)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ExitCode != 0 || !results[0].Passed() {
		t.Errorf("cached item result = %+v, want passing", results[0])
	}
	if !results[1].Passed() {
		t.Errorf("freshly-run item result = %+v, want passing", results[1])
	}
	if _, ok := resultCache.Get("fresh-item"); !ok {
		t.Error("expected fresh-item to be cached after running")
	}
}

func TestItemOutcomeFromLogParsesLogWhenPresent(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "IMP-1.log")
	writeFile(t, logPath, "FAIL:IMP-1:desc\n")

	outcome := itemOutcomeFromLog(logPath, "IMP-1", dispatch.TaskResult{ExitCode: 0})
	if outcome.Passed {
		t.Error("expected the parsed FAIL status to win over a passing exit code")
	}
	if outcome.Missing {
		t.Error("did not expect Missing when the log parsed cleanly")
	}
}

func TestItemOutcomeFromLogFallsBackWhenLogMissing(t *testing.T) {
	result := dispatch.TaskResult{ExitCode: 1, Timedout: true}
	outcome := itemOutcomeFromLog(filepath.Join(t.TempDir(), "missing.log"), "IMP-2", result)
	if outcome.Passed {
		t.Error("expected a failing fallback outcome")
	}
	if !outcome.Missing {
		t.Error("expected Missing when the log file does not exist")
	}
}

func TestItemOutcomeFromLogFallsBackWhenLogUnparseable(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "IMP-3.log")
	writeFile(t, logPath, "not a real checkflow log\n")

	outcome := itemOutcomeFromLog(logPath, "IMP-3", dispatch.TaskResult{ExitCode: 0})
	if !outcome.Passed {
		t.Error("expected the exit-code fallback (passing) to be used for an unparseable log")
	}
}

// TestGlobalLoggerRoutesThroughTeeLogger proves runRun's log.Logger =
// log.Output(teeLogger) wiring actually does something: once the global
// logger's writer is reassigned, every zerolog call anywhere in the
// process - not just in this package - flows through the TeeLogger
// instead of going straight to stderr.
func TestGlobalLoggerRoutesThroughTeeLogger(t *testing.T) {
	original := log.Logger
	defer func() { log.Logger = original }()

	logPath := filepath.Join(t.TempDir(), "Checkflow.log")
	teeLogger, err := dispatch.NewTeeLogger(logPath, []string{"checkflow", "-root", "."})
	if err != nil {
		t.Fatalf("NewTeeLogger: %v", err)
	}
	defer teeLogger.Close()

	log.Logger = log.Output(teeLogger)
	log.Warn().Msg("[WARN] checker failed")
	_ = teeLogger.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[WARN] checker failed") {
		t.Errorf("expected the global logger's output in Checkflow.log, got %q", data)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writeFile(%s): %v", path, err)
	}
}
