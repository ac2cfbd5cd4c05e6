// Package builder assembles a models.CheckResult from the categorized item
// sets a checker produces (found/missing/waived/unused-waivers/extra),
// mirroring the single-call "build complete output" convenience path used
// by nearly every checker (spec §4.5).
package builder

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/checkflow/checkflow/internal/waiver"
	"github.com/checkflow/checkflow/pkg/models"
)

// Item is one piece of metadata attached to an item name: where it was
// found, for source-line rendering.
type Item struct {
	LineNumber  int
	FilePath    string
	LineContent string
}

// ItemSet maps an item name to its metadata. A name with no known location
// still belongs in the set — it renders with DefaultFile and line 0.
type ItemSet map[string]Item

// Reason is either fixed text or a function of the item's metadata,
// mirroring the Python templates' `Union[str, Callable]` reason
// parameters.
type Reason struct {
	text string
	fn   func(name string, item Item) string
}

// Text returns a Reason that always renders to s.
func Text(s string) Reason { return Reason{text: s} }

// Func returns a Reason computed per item.
func Func(fn func(name string, item Item) string) Reason { return Reason{fn: fn} }

func (r Reason) render(name string, item Item) string {
	if r.fn != nil {
		return r.fn(name, item)
	}
	return r.text
}

func (r Reason) isZero() bool { return r.text == "" && r.fn == nil }

// NameExtractor computes a display name for an item, e.g. pulling a report
// path out of a log line instead of showing the raw matched token.
type NameExtractor func(name string, item Item) string

// ExtractPathAfterDelimiter returns the text following the last occurrence
// of delimiter in the item's line content, falling back to name if the
// delimiter isn't present.
func ExtractPathAfterDelimiter(delimiter string) NameExtractor {
	return func(name string, item Item) string {
		if delimiter == "" || !strings.Contains(item.LineContent, delimiter) {
			return name
		}
		parts := strings.Split(item.LineContent, delimiter)
		tail := strings.TrimSpace(parts[len(parts)-1])
		if tail == "" {
			return name
		}
		return tail
	}
}

// ExtractFilename returns the base filename from the item's line content
// (trying '>', ':', '=' as separators in turn) or from its file path.
func ExtractFilename(name string, item Item) string {
	for _, delim := range []string{">", ":", "="} {
		if strings.Contains(item.LineContent, delim) {
			parts := strings.Split(item.LineContent, delim)
			candidate := strings.TrimSpace(parts[len(parts)-1])
			if candidate != "" {
				return path.Base(candidate)
			}
		}
	}
	if item.FilePath != "" {
		return path.Base(item.FilePath)
	}
	return name
}

// Options configures BuildDetailsFromItems, BuildResultGroups and
// BuildCompleteOutput. Not every field applies to every function; fields
// irrelevant to a given call are simply ignored.
type Options struct {
	Found         ItemSet
	Missing       ItemSet
	Waived        ItemSet
	UnusedWaivers ItemSet
	Extra         ItemSet

	// WaiveReasons maps a waived/unused-waiver item name to its configured
	// waiver reason text (empty if none).
	WaiveReasons map[string]string

	Value           models.Value
	HasPatternItems bool
	HasWaiverValue  bool

	DefaultFile   string
	NameExtractor NameExtractor

	FoundReason        Reason
	MissingReason      Reason
	WaivedBaseReason   string
	UnusedWaiverReason string
	ExtraReason        Reason

	// MissingSeverity overrides the default FAIL severity for missing
	// items (ignored under ConvertToInfo, which always uses INFO).
	MissingSeverity models.Severity
	// ExtraSeverity overrides the default WARN severity for extra items.
	ExtraSeverity models.Severity

	WaivedTag waiver.Tag

	FoundDesc   string
	MissingDesc string
	WaivedDesc  string
	UnusedDesc  string
	ExtraDesc   string

	// ConvertToInfo is Types 1/2's waivers.value = 0 display mode: every
	// FAIL/WARN severity collapses to INFO and the item is forced to pass.
	ConvertToInfo bool
}

func sortedNames(set ItemSet) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(set ItemSet, name string) Item {
	if item, ok := set[name]; ok {
		return item
	}
	return Item{}
}

func (o Options) defaultFile() string {
	if o.DefaultFile != "" {
		return o.DefaultFile
	}
	return "N/A"
}

func (o Options) displayName(name string, item Item) string {
	if o.NameExtractor != nil {
		return o.NameExtractor(name, item)
	}
	return name
}

// BuildDetailsFromItems renders categorized items into a flat, ordered
// DetailItem list: waived first, then found, then missing (FAIL, or INFO
// under ConvertToInfo), then unused waivers (WARN, or INFO under
// ConvertToInfo).
func BuildDetailsFromItems(o Options) []models.DetailItem {
	var details []models.DetailItem
	defaultFile := o.defaultFile()

	for _, name := range sortedNames(o.Waived) {
		item := lookup(o.Waived, name)
		reason := o.WaiveReasons[name]
		base := o.WaivedBaseReason
		if base == "" {
			base = "Item not found"
		}
		tag := o.WaivedTag
		if tag == "" {
			tag = waiver.TagWaiver
		}
		details = append(details, models.DetailItem{
			Severity:   models.SeverityInfo,
			Name:       name,
			LineNumber: item.LineNumber,
			FilePath:   orDefault(item.FilePath, defaultFile),
			Reason:     waiver.FormatReason(base, reason, tag),
		})
	}

	for _, name := range sortedNames(o.Found) {
		item := lookup(o.Found, name)
		reasonText := o.FoundReason
		if reasonText.isZero() {
			reasonText = Text("Item found")
		}
		details = append(details, models.DetailItem{
			Severity:   models.SeverityInfo,
			Name:       o.displayName(name, item),
			LineNumber: item.LineNumber,
			FilePath:   orDefault(item.FilePath, defaultFile),
			Reason:     reasonText.render(name, item),
		})
	}

	missingSeverity := o.MissingSeverity
	if missingSeverity == "" {
		missingSeverity = models.SeverityFail
	}
	if o.ConvertToInfo {
		missingSeverity = models.SeverityInfo
	}
	for _, name := range sortedNames(o.Missing) {
		item := lookup(o.Missing, name)
		reasonText := o.MissingReason
		if reasonText.isZero() {
			reasonText = Text("Item not found")
		}
		details = append(details, models.DetailItem{
			Severity:   missingSeverity,
			Name:       o.displayName(name, item),
			LineNumber: item.LineNumber,
			FilePath:   orDefault(item.FilePath, defaultFile),
			Reason:     reasonText.render(name, item),
		})
	}

	if len(o.UnusedWaivers) > 0 {
		severity := models.SeverityWarn
		tag := waiver.TagWaiver
		if o.ConvertToInfo {
			severity = models.SeverityInfo
			tag = waiver.TagWaivedAsInfo
		}
		base := o.UnusedWaiverReason
		if base == "" {
			base = "Waiver defined but no violation matched"
		}
		for _, name := range sortedNames(o.UnusedWaivers) {
			item := lookup(o.UnusedWaivers, name)
			details = append(details, models.DetailItem{
				Severity:   severity,
				Name:       name,
				LineNumber: item.LineNumber,
				FilePath:   orDefault(item.FilePath, defaultFile),
				Reason:     waiver.FormatReason(base, o.WaiveReasons[name], tag),
			})
		}
	}

	return details
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// BuildResultGroups assembles the INFO/ERROR/WARN group maps from
// categorized items: INFO01 is waived (if any), the next INFO slot is
// found, and missing/unused-waivers become ERROR01/WARN01 — or additional
// INFO groups tagged [WAIVED_AS_INFO] under ConvertToInfo.
func BuildResultGroups(o Options) (info, errGroups, warn models.GroupMap) {
	info = models.GroupMap{}
	errGroups = models.GroupMap{}
	warn = models.GroupMap{}

	if len(o.Waived) > 0 {
		desc := o.WaivedDesc
		if desc == "" {
			desc = "Items waived"
		}
		info["INFO01"] = models.Group{Description: desc, Items: sortedNames(o.Waived)}
	}

	if len(o.Found) > 0 {
		desc := o.FoundDesc
		if desc == "" {
			desc = "Items found"
		}
		names := sortedNames(o.Found)
		if o.NameExtractor != nil {
			displayed := make([]string, len(names))
			for i, n := range names {
				displayed[i] = o.displayName(n, lookup(o.Found, n))
			}
			names = displayed
		}
		key := "INFO01"
		if len(o.Waived) > 0 {
			key = "INFO02"
		}
		info[key] = models.Group{Description: desc, Items: names}
	}

	if o.ConvertToInfo {
		if len(o.Missing) > 0 {
			key := fmt.Sprintf("INFO%02d", len(info)+1)
			desc := o.MissingDesc
			if desc == "" {
				desc = "Items not found"
			}
			info[key] = models.Group{Description: "[WAIVED_AS_INFO]: " + desc, Items: sortedNames(o.Missing)}
		}
		if len(o.UnusedWaivers) > 0 {
			key := fmt.Sprintf("INFO%02d", len(info)+1)
			desc := o.UnusedDesc
			if desc == "" {
				desc = "Unused waivers"
			}
			info[key] = models.Group{Description: "[WAIVED_AS_INFO]: " + desc, Items: sortedNames(o.UnusedWaivers)}
		}
		return info, errGroups, warn
	}

	if len(o.Missing) > 0 {
		desc := o.MissingDesc
		if desc == "" {
			desc = "Items not found"
		}
		errGroups["ERROR01"] = models.Group{Description: desc, Items: sortedNames(o.Missing)}
	}
	if len(o.UnusedWaivers) > 0 {
		desc := o.UnusedDesc
		if desc == "" {
			desc = "Unused waivers"
		}
		warn["WARN01"] = models.Group{Description: desc, Items: sortedNames(o.UnusedWaivers)}
	}

	return info, errGroups, warn
}

// BuildCompleteOutput is the one-call path used by nearly every checker: it
// derives is_pass, builds details and groups, splices in extra_items at the
// right position, and returns a ready-to-return CheckResult.
func BuildCompleteOutput(o Options) models.CheckResult {
	isPass := o.ConvertToInfo || len(o.Missing) == 0

	extraSeverity := o.ExtraSeverity
	if extraSeverity == "" {
		extraSeverity = models.SeverityWarn
	}
	if !o.ConvertToInfo && len(o.Extra) > 0 && extraSeverity == models.SeverityFail {
		isPass = false
	}

	details := BuildDetailsFromItems(o)
	info, errGroups, warn := BuildResultGroups(o)

	if len(o.Extra) > 0 {
		details, info, errGroups, warn = spliceExtra(o, details, info, errGroups, warn, extraSeverity)
	}

	value := o.Value
	if value.IsNA() && len(o.Found) > 0 {
		value = models.Count(len(o.Found))
	}

	return models.CheckResult{
		ResultType:      models.DetermineResultType(value, isPass, o.HasPatternItems, o.HasWaiverValue),
		IsPass:          isPass,
		Value:           value,
		HasPatternItems: o.HasPatternItems,
		HasWaiverValue:  o.HasWaiverValue,
		Details:         details,
		ErrorGroups:     errGroups,
		WarnGroups:      warn,
		InfoGroups:      info,
	}
}

func spliceExtra(o Options, details []models.DetailItem, info, errGroups, warn models.GroupMap, extraSeverity models.Severity) ([]models.DetailItem, models.GroupMap, models.GroupMap, models.GroupMap) {
	finalSeverity := extraSeverity
	tagSuffix := ""
	if o.ConvertToInfo {
		finalSeverity = models.SeverityInfo
		tagSuffix = " [WAIVED_AS_INFO]"
	}

	extraDesc := o.ExtraDesc
	if extraDesc == "" {
		extraDesc = "Unexpected items need review"
	}

	insertPos := len(details)
	for i, d := range details {
		if d.Severity == models.SeverityFail {
			insertPos = i
			break
		}
	}

	names := sortedNames(o.Extra)
	extraDetails := make([]models.DetailItem, 0, len(names))
	for _, name := range names {
		item := lookup(o.Extra, name)
		reasonText := o.ExtraReason
		if reasonText.isZero() {
			reasonText = Text("Unexpected item found")
		}
		extraDetails = append(extraDetails, models.DetailItem{
			Severity:   finalSeverity,
			Name:       name,
			LineNumber: item.LineNumber,
			FilePath:   orDefault(item.FilePath, o.defaultFile()),
			Reason:     reasonText.render(name, item) + tagSuffix,
		})
	}

	merged := make([]models.DetailItem, 0, len(details)+len(extraDetails))
	merged = append(merged, details[:insertPos]...)
	merged = append(merged, extraDetails...)
	merged = append(merged, details[insertPos:]...)

	switch {
	case o.ConvertToInfo:
		key := fmt.Sprintf("INFO%02d", len(info)+1)
		desc := extraDesc
		if !strings.HasPrefix(desc, "[WAIVED_AS_INFO]") {
			desc = "[WAIVED_AS_INFO]: " + desc
		}
		info[key] = models.Group{Description: desc, Items: names}
	case finalSeverity == models.SeverityFail:
		errGroups["ERROR01"] = models.Group{Description: extraDesc, Items: names}
	default:
		warn["WARN01"] = models.Group{Description: extraDesc, Items: names}
	}

	return merged, info, errGroups, warn
}
