package format

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/checkflow/checkflow/pkg/models"
)

// ParsedResult is the subset of a models.CheckResult recoverable by
// re-reading a rendered log or report (spec §8's render/re-parse round
// trip, and spec §4.8 step 3's per-module summary, which reads the
// per-item artifacts rather than reusing the dispatcher's own in-process
// bookkeeping).
type ParsedResult struct {
	ItemID      string
	ItemDesc    string
	Status      string // "PASS", "FAIL", or "CONFIG_ERROR"
	InfoMessage string
	Groups      []ParsedGroup
}

// ParsedGroup is one ERRORnn/WARNnn/INFOnn block recovered from a log.
type ParsedGroup struct {
	Key         string
	Description string
	Severity    models.Severity
	Occurrence  int
	Names       []string
}

// Passed reports whether the parsed status represents a passing result.
func (p ParsedResult) Passed() bool {
	return p.Status == "PASS"
}

// IsConfigError reports whether the parsed status is the config/execution
// error marker (spec §3 invariant, mirrored from models.CheckResult).
func (p ParsedResult) IsConfigError() bool {
	return p.Status == "CONFIG_ERROR"
}

var statusLine = map[string]string{
	"PASS":           "PASS",
	"FAIL":           "FAIL",
	"[CONFIG_ERROR]": "CONFIG_ERROR",
}

// ParseLog recovers a ParsedResult from RenderLog's output. It is
// deliberately forgiving of a truncated or partially-written log (a
// worker crashed mid-write): it returns whatever it could parse up to the
// first malformed line, along with an error identifying that line, so
// callers can still use a recovered status even when the tail is damaged.
func ParseLog(data []byte) (ParsedResult, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var result ParsedResult
	var current *ParsedGroup
	lineNo := 0

	flush := func() {
		if current != nil {
			result.Groups = append(result.Groups, *current)
			current = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			status, itemID, desc, err := parseStatusLine(line)
			if err != nil {
				return result, fmt.Errorf("line %d: %w", lineNo, err)
			}
			result.Status, result.ItemID, result.ItemDesc = status, itemID, desc
			continue
		}
		switch {
		case strings.HasPrefix(line, "[INFO]:"):
			result.InfoMessage = strings.TrimPrefix(line, "[INFO]:")
		case strings.HasPrefix(line, "[WAIVED_INFO]:"):
			// top-level waived-info lines carry no group membership; nothing
			// further to recover from them for summary purposes.
		case strings.HasPrefix(line, "  - "):
			if current == nil {
				return result, fmt.Errorf("line %d: item line outside a group", lineNo)
			}
			current.Names = append(current.Names, strings.TrimPrefix(line, "  - "))
		case strings.HasPrefix(line, "  Severity: "):
			if current == nil {
				return result, fmt.Errorf("line %d: severity line outside a group", lineNo)
			}
			sev, occ, err := parseSeverityLine(line)
			if err != nil {
				return result, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Severity, current.Occurrence = sev, occ
		case strings.Contains(line, ": ") && strings.HasSuffix(line, ":"):
			flush()
			key, desc, err := parseGroupHeader(line)
			if err != nil {
				return result, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &ParsedGroup{Key: key, Description: desc}
		default:
			return result, fmt.Errorf("line %d: unrecognized line %q", lineNo, line)
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func parseStatusLine(line string) (status, itemID, desc string, err error) {
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("malformed status line %q", line)
	}
	mapped, ok := statusLine[parts[0]]
	if !ok {
		return "", "", "", fmt.Errorf("unknown status token %q", parts[0])
	}
	itemID = parts[1]
	if len(parts) == 3 {
		desc = parts[2]
	}
	return mapped, itemID, desc, nil
}

// parseGroupHeader parses "<itemID>-<KEY>: <description>:" into KEY and
// description.
func parseGroupHeader(line string) (key, desc string, err error) {
	idx := strings.Index(line, ": ")
	if idx < 0 {
		return "", "", fmt.Errorf("malformed group header %q", line)
	}
	head := line[:idx]
	dashIdx := strings.LastIndex(head, "-")
	if dashIdx < 0 {
		return "", "", fmt.Errorf("malformed group header %q", line)
	}
	key = head[dashIdx+1:]
	desc = strings.TrimSuffix(line[idx+2:], ":")
	return key, desc, nil
}

// parseSeverityLine parses "  Severity: Fail Occurrence: 3".
func parseSeverityLine(line string) (models.Severity, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return "", 0, fmt.Errorf("malformed severity line %q", line)
	}
	var sev models.Severity
	switch fields[1] {
	case "Fail":
		sev = models.SeverityFail
	case "Warn":
		sev = models.SeverityWarn
	case "Info":
		sev = models.SeverityInfo
	default:
		return "", 0, fmt.Errorf("unknown severity label %q", fields[1])
	}
	occ, err := strconv.Atoi(fields[3])
	if err != nil {
		return "", 0, fmt.Errorf("malformed occurrence count %q", fields[3])
	}
	return sev, occ, nil
}
