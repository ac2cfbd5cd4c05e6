package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestTaskRunnerPass(t *testing.T) {
	r := NewTaskRunner(t.TempDir())
	result := r.Run(context.Background(), Item{Module: "IMP-1", ItemID: "x"}, "sh", "-c", "exit 0")
	if !result.Passed() {
		t.Errorf("expected pass, got %+v", result)
	}
}

func TestTaskRunnerNonZeroExit(t *testing.T) {
	r := NewTaskRunner(t.TempDir())
	result := r.Run(context.Background(), Item{Module: "IMP-1", ItemID: "x"}, "sh", "-c", "exit 7")
	if result.Passed() {
		t.Error("expected failure")
	}
	if result.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", result.ExitCode)
	}
}

func TestTaskRunnerTimeout(t *testing.T) {
	r := &TaskRunner{WorkDir: t.TempDir(), Timeout: 50 * time.Millisecond}
	result := r.Run(context.Background(), Item{Module: "IMP-1", ItemID: "x"}, "sh", "-c", "sleep 2")
	if !result.Timedout {
		t.Error("expected a timeout")
	}
	if result.Passed() {
		t.Error("a timed-out task must not report as passed")
	}
}
