package dispatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTeeLoggerWritesEverythingToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Checkflow.log")
	tl, err := NewTeeLogger(path, []string{"checkflow", "-root", "."})
	if err != nil {
		t.Fatalf("NewTeeLogger: %v", err)
	}
	defer tl.Close()

	_, _ = tl.Write([]byte("Checker directory not found: foo\n"))
	_, _ = tl.Write([]byte("[INFO] Execution mode: item\n"))
	_ = tl.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Checker directory not found") {
		t.Error("expected noisy message in log file")
	}
	if !strings.Contains(content, "[INFO] Execution mode: item") {
		t.Error("expected terminal-worthy message in log file too")
	}
	if !strings.HasPrefix(content, "===== CheckFlow Execution Log =====") {
		t.Errorf("missing header: %q", content)
	}
}

type capturingWriter struct{ lines []string }

func (w *capturingWriter) Write(p []byte) (int, error) {
	w.lines = append(w.lines, string(p))
	return len(p), nil
}

func TestTeeLoggerFiltersTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Checkflow.log")
	tl, err := NewTeeLogger(path, []string{"checkflow"})
	if err != nil {
		t.Fatalf("NewTeeLogger: %v", err)
	}
	defer tl.Close()

	term := &capturingWriter{}
	tl.terminal = term

	_, _ = tl.Write([]byte("Checker directory not found: foo\n"))
	_, _ = tl.Write([]byte("[INFO] Execution mode: item\n"))
	_, _ = tl.Write([]byte("some unrelated chatter\n"))

	if len(term.lines) != 1 {
		t.Fatalf("expected exactly one line promoted to terminal, got %v", term.lines)
	}
	if !strings.Contains(term.lines[0], "Execution mode") {
		t.Errorf("unexpected terminal line: %q", term.lines[0])
	}
}
