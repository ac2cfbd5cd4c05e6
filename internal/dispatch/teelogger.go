package dispatch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// noisyPrefixes are only ever written to the log file: they are too
// verbose to surface on the terminal for every run (mirrors
// check_flowtool.py's TeeLogger filtering).
var noisyPrefixes = []string{
	"Checker directory not found",
	"Checker script not found",
	"Summary directory not found",
	"Failed to generate summary YAML",
	"Summary YAML missing, skip Excel/CSV",
}

// terminalKeywords additionally gate which lines reach the terminal: only
// messages matching one of these are promoted there, everything else
// stays log-file-only.
var terminalKeywords = []string{
	"DEVELOPMENT MODE", "SKIPPED", "Skipping",
	"[INFO] Execution mode:", "[INFO] Item-level parallel",
	"Executing checkers:", "Execution summary:",
	"[INFO] Distributing DATA_INTERFACE", "[INFO] Skipping distribute",
	"[INFO] DATA_INTERFACE distribution",
	"Processing",
	"[ERROR]", "[WARN]",
}

// TeeLogger mirrors dispatcher progress to Work/Checkflow.log in full, and
// to the terminal only for the subset of messages worth surfacing live
// (spec §4.8: "a TeeLogger in the parent mirrors parent-side progress to
// Work/Checkflow.log and, filtered, to the terminal").
type TeeLogger struct {
	terminal io.Writer
	logFile  *os.File
}

// NewTeeLogger opens logPath for writing (truncating any previous run's
// log) and writes the standard header.
func NewTeeLogger(logPath string, command []string) (*TeeLogger, error) {
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 - logPath is the dispatcher's own Work/Checkflow.log
	if err != nil {
		return nil, fmt.Errorf("open dispatcher log: %w", err)
	}
	t := &TeeLogger{terminal: os.Stdout, logFile: f}
	t.writeHeader(command)
	return t, nil
}

func (t *TeeLogger) writeHeader(command []string) {
	fmt.Fprintf(t.logFile, "===== CheckFlow Execution Log =====\nTimestamp: %s\nCommand: %s\n\n",
		time.Now().Format("2006-01-02 15:04:05"), strings.Join(command, " "))
}

// Write implements io.Writer: every message always reaches the log file;
// it reaches the terminal only when it isn't in noisyPrefixes and does
// match one of terminalKeywords.
func (t *TeeLogger) Write(p []byte) (int, error) {
	message := string(p)
	n, err := t.logFile.Write(p)
	if err != nil {
		return n, err
	}

	for _, prefix := range noisyPrefixes {
		if strings.Contains(message, prefix) {
			return len(p), nil
		}
	}
	for _, kw := range terminalKeywords {
		if strings.Contains(message, kw) {
			_, _ = t.terminal.Write(p)
			break
		}
	}
	return len(p), nil
}

// Close closes the underlying log file.
func (t *TeeLogger) Close() error {
	return t.logFile.Close()
}
