package dispatch

import (
	"context"
	"fmt"
	"testing"
)

func TestRunModulesWritesAndReadsManifests(t *testing.T) {
	workDir := t.TempDir()
	tasks := []ModuleTask{
		{Module: "IMP-1", ItemIDs: []string{"a", "b"}},
		{Module: "STA-1", ItemIDs: []string{"c"}},
	}
	d := &Dispatcher{
		Runner:  NewTaskRunner(workDir),
		Workers: 2,
	}

	resolve := func(task ModuleTask, resultsPath string) (string, []string) {
		// Emulate a module worker: write a manifest reporting every item
		// passed, then exit 0.
		script := fmt.Sprintf(`mkdir -p "$(dirname %q)" && cat > %q <<'EOF'
[{"item_id":"%s","exit_code":0,"timedout":false}]
EOF`, resultsPath, resultsPath, task.ItemIDs[0])
		return "sh", []string{"-c", script}
	}

	results := d.RunModules(context.Background(), tasks, resolve)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ManifestErr != nil {
		t.Fatalf("unexpected manifest error: %v", results[0].ManifestErr)
	}
	if len(results[0].Outcomes) != 1 || results[0].Outcomes[0].ItemID != "a" {
		t.Errorf("unexpected outcomes for IMP-1: %+v", results[0].Outcomes)
	}
}

func TestRunModulesMissingManifestFailsItemsClosed(t *testing.T) {
	workDir := t.TempDir()
	tasks := []ModuleTask{{Module: "IMP-1", ItemIDs: []string{"a", "b"}}}
	d := &Dispatcher{
		Runner:  NewTaskRunner(workDir),
		Workers: 1,
	}

	resolve := func(task ModuleTask, resultsPath string) (string, []string) {
		// The worker crashes before ever writing its results manifest.
		return "sh", []string{"-c", "exit 1"}
	}

	results := d.RunModules(context.Background(), tasks, resolve)
	expanded := ExpandAll(tasks, results)
	if len(expanded) != 2 {
		t.Fatalf("len(expanded) = %d, want 2", len(expanded))
	}
	for _, r := range expanded {
		if r.Passed() {
			t.Errorf("expected every item to fail closed when the manifest is missing: %+v", r)
		}
	}
}

func TestExpandAllPreservesTaskOrder(t *testing.T) {
	tasks := []ModuleTask{
		{Module: "IMP-1", ItemIDs: []string{"a"}},
		{Module: "STA-1", ItemIDs: []string{"b", "c"}},
	}
	results := []ModuleResult{
		{Module: "IMP-1", Outcomes: []ItemOutcome{{ItemID: "a", ExitCode: 0}}},
		{Module: "STA-1", Outcomes: []ItemOutcome{{ItemID: "b", ExitCode: 0}, {ItemID: "c", ExitCode: 1}}},
	}
	flat := ExpandAll(tasks, results)
	if len(flat) != 3 {
		t.Fatalf("len(flat) = %d, want 3", len(flat))
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if flat[i].Item.ItemID != id {
			t.Errorf("flat[%d].Item.ItemID = %q, want %q", i, flat[i].Item.ItemID, id)
		}
	}
}
