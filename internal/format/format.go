// Package format renders a models.CheckResult into the two on-disk
// artifacts every check item produces: a compact log consumed by
// aggregation tooling, and a human/Excel-facing report (spec §4.2). Both
// are written atomically via temp-file-then-rename.
package format

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/checkflow/checkflow/pkg/models"
)

// status renders the STATUS token shared by both artifacts.
func status(r models.CheckResult) string {
	if r.HasConfigErrorMarker() {
		return "[CONFIG_ERROR]"
	}
	if r.IsPass {
		return "PASS"
	}
	return "FAIL"
}

// waivedInfoLines returns the waive_text of every Info detail whose reason
// carries the [WAIVED_INFO] tag — these render only as top-level lines,
// never as numbered report/log entries.
func waivedInfoLines(r models.CheckResult) []string {
	var lines []string
	for _, d := range r.Details {
		if d.Severity == models.SeverityInfo && strings.Contains(d.Reason, "[WAIVED_INFO]") {
			lines = append(lines, d.Reason)
		}
	}
	return lines
}

// groupItemNames returns a group's configured item names, or — if none
// were configured — every detail name of the matching severity, in
// first-appearance order with duplicates removed.
func groupItemNames(group models.Group, severity models.Severity, r models.CheckResult) []string {
	if len(group.Items) > 0 {
		return group.Items
	}
	seen := make(map[string]bool)
	var names []string
	for _, d := range r.Details {
		if d.Severity != severity {
			continue
		}
		if d.Name == "" || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}
	return names
}

// RenderLog produces the aggregation-facing log text for r.
func RenderLog(itemID string, r models.CheckResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s:%s:%s\n", status(r), itemID, r.ItemDesc)
	if r.InfoMessage != "" {
		fmt.Fprintf(&b, "[INFO]:%s\n", r.InfoMessage)
	}
	for _, line := range waivedInfoLines(r) {
		fmt.Fprintf(&b, "[WAIVED_INFO]:%s\n", line)
	}

	writeGroupBlock(&b, itemID, "ERROR", models.SeverityFail, r.ErrorGroups, r)
	writeGroupBlock(&b, itemID, "WARN", models.SeverityWarn, r.WarnGroups, r)
	writeGroupBlock(&b, itemID, "INFO", models.SeverityInfo, r.InfoGroups, r)

	return b.String()
}

func writeGroupBlock(b *strings.Builder, itemID, prefix string, severity models.Severity, groups models.GroupMap, r models.CheckResult) {
	for _, key := range groups.SortedKeys() {
		group := groups[key]
		names := groupItemNames(group, severity, r)
		if prefix == "INFO" && key != "INFO01" {
			names = filterWaivedInfo(names, r)
		}
		fmt.Fprintf(b, "%s-%s: %s:\n", itemID, key, group.Description)
		fmt.Fprintf(b, "  Severity: %s Occurrence: %d\n", severityLabel(severity), len(names))
		for _, name := range names {
			fmt.Fprintf(b, "  - %s\n", name)
		}
	}
}

func filterWaivedInfo(names []string, r models.CheckResult) []string {
	waived := make(map[string]bool)
	for _, d := range r.Details {
		if strings.Contains(d.Reason, "[WAIVED_INFO]") {
			waived[d.Name] = true
		}
	}
	if len(waived) == 0 {
		return names
	}
	filtered := make([]string, 0, len(names))
	for _, n := range names {
		if !waived[n] {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func severityLabel(s models.Severity) string {
	switch s {
	case models.SeverityFail:
		return "Fail"
	case models.SeverityWarn:
		return "Warn"
	default:
		return "Info"
	}
}

// RenderReport produces the human/Excel-facing report text for r.
func RenderReport(itemID string, r models.CheckResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s:%s:%s\n", status(r), itemID, r.ItemDesc)
	if r.InfoMessage != "" {
		fmt.Fprintf(&b, "[INFO]:%s\n", r.InfoMessage)
	}
	for _, line := range waivedInfoLines(r) {
		fmt.Fprintf(&b, "[WAIVED_INFO]:%s\n", line)
	}

	writeDetailBucket(&b, "Fail", models.SeverityFail, r.Details)
	writeDetailBucket(&b, "Warn", models.SeverityWarn, r.Details)
	writeDetailBucket(&b, "Info", models.SeverityInfo, r.Details)

	return b.String()
}

func writeDetailBucket(b *strings.Builder, label string, severity models.Severity, details []models.DetailItem) {
	var bucket []models.DetailItem
	for _, d := range details {
		if d.Severity == severity && !strings.Contains(d.Reason, "[WAIVED_INFO]") {
			bucket = append(bucket, d)
		}
	}
	fmt.Fprintf(b, "%s Occurrence: %d\n", label, len(bucket))
	for i, d := range bucket {
		text := d.Name
		if text == "" {
			text = d.Reason
		}
		if d.HasLocation() {
			fmt.Fprintf(b, "%d: %s: %s. In line %s, %s: %s\n", i+1, label, text, strconv.Itoa(d.LineNumber), d.FilePath, d.Reason)
		} else {
			fmt.Fprintf(b, "%d: %s: %s: %s\n", i+1, label, text, d.Reason)
		}
	}
}

// WriteAtomic writes content to path via a temp file in the same
// directory followed by a rename, so readers never observe a partial
// write (spec §4.2).
func WriteAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// WriteItemArtifacts renders and atomically writes both the log and
// report for one item.
func WriteItemArtifacts(itemID, logPath, reportPath string, r models.CheckResult) error {
	if err := WriteAtomic(logPath, RenderLog(itemID, r)); err != nil {
		return fmt.Errorf("write log for %s: %w", itemID, err)
	}
	if err := WriteAtomic(reportPath, RenderReport(itemID, r)); err != nil {
		return fmt.Errorf("write report for %s: %w", itemID, err)
	}
	return nil
}
