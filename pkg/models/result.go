// Package models defines the declarative schema shared across checkflow's
// components: the item configuration a checker receives and the
// CheckResult it produces.
package models

import (
	"sort"
	"strconv"
	"strings"
)

// Severity is the severity level of a DetailItem or Group.
type Severity string

const (
	SeverityInfo Severity = "Info"
	SeverityWarn Severity = "Warn"
	SeverityFail Severity = "Fail"
)

// severityOrder gives the stable total order Fail < Warn < Info used when
// groups are written out.
var severityOrder = map[Severity]int{
	SeverityFail: 0,
	SeverityWarn: 1,
	SeverityInfo: 2,
}

// Less reports whether s sorts before other under the Fail < Warn < Info order.
func (s Severity) Less(other Severity) bool {
	return severityOrder[s] < severityOrder[other]
}

// ResultType is the legacy ten-way classification kept for back-compat with
// downstream parsers. New code must never branch on it; it is computed once
// at construction and otherwise inert (spec §9, open question 1).
type ResultType int

const (
	_ ResultType = iota
	PassWithValues
	FailWithValues
	PassWithoutValues
	InfoOnly
	PassWithWaivers
	FailWithWaivers
	FailWithoutCheckValues
	PassWithFullWaivers
	ExecutionErrorResult
	ConfigErrorResult
)

// Value represents requirements.value / the computed check value: an
// integer count, the sentinel "N/A", or the sentinel "ERROR".
type Value struct {
	// Kind distinguishes which field is meaningful.
	Kind  ValueKind
	Count int
}

type ValueKind int

const (
	ValueCount ValueKind = iota
	ValueNA
	ValueError
)

// NA is the "N/A" sentinel value.
func NA() Value { return Value{Kind: ValueNA} }

// ErrorValue is the "ERROR" sentinel value.
func ErrorValue() Value { return Value{Kind: ValueError} }

// Count wraps an integer count value (may be 0).
func Count(n int) Value { return Value{Kind: ValueCount, Count: n} }

func (v Value) IsNA() bool    { return v.Kind == ValueNA }
func (v Value) IsError() bool { return v.Kind == ValueError }
func (v Value) IsZero() bool  { return v.Kind == ValueCount && v.Count == 0 }
func (v Value) IsPositive() bool {
	return v.Kind == ValueCount && v.Count > 0
}

// String renders the value the way it appears in logs/reports and YAML.
func (v Value) String() string {
	switch v.Kind {
	case ValueNA:
		return "N/A"
	case ValueError:
		return "ERROR"
	default:
		return strconv.Itoa(v.Count)
	}
}

// DetailItem is a single piece of evidence feeding groups and report bullets.
type DetailItem struct {
	Severity Severity
	// Name is a short identifier (e.g. library name or violating token); may
	// be empty.
	Name string
	// LineNumber is 0 when not applicable.
	LineNumber int
	// FilePath is "N/A" when not applicable.
	FilePath string
	// Reason is free text; may carry embedded tags [WAIVER], [WAIVED_INFO],
	// [WAIVED_AS_INFO], [WAIVED_REASON].
	Reason string
}

// HasLocation reports whether the rendering should include a location clause
// ". In line L, file" — false when either the line or the file is unset.
func (d DetailItem) HasLocation() bool {
	if d.LineNumber == 0 {
		return false
	}
	if d.FilePath == "" || d.FilePath == "N/A" {
		return false
	}
	return true
}

// Group is a named bucket of items with a human description. Keys must
// match /^(ERROR|WARN|INFO)\d{2}$/.
type Group struct {
	Description string
	Items       []string
}

// GroupMap is a map of group key to Group. Keys sort by severity then
// ordinal: ERROR01 < ERROR02 < WARN01 < INFO01.
type GroupMap map[string]Group

// SortedKeys returns the map's keys in the canonical rendering order.
func (g GroupMap) SortedKeys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return groupKeyLess(keys[i], keys[j])
	})
	return keys
}

var groupPrefixOrder = map[string]int{"ERROR": 0, "WARN": 1, "INFO": 2}

// groupKeyLess orders group keys by severity (ERROR/WARN/INFO) then by the
// trailing two-digit ordinal.
func groupKeyLess(a, b string) bool {
	pa, oa := splitGroupKey(a)
	pb, ob := splitGroupKey(b)
	if pa != pb {
		return groupPrefixOrder[pa] < groupPrefixOrder[pb]
	}
	return oa < ob
}

func splitGroupKey(key string) (prefix string, ordinal string) {
	for i, r := range key {
		if r >= '0' && r <= '9' {
			return key[:i], key[i:]
		}
	}
	return key, ""
}

// CheckResult is the canonical record produced by a checker's execute_check.
type CheckResult struct {
	ResultType      ResultType
	IsPass          bool
	Value           Value
	HasPatternItems bool
	HasWaiverValue  bool
	Details         []DetailItem
	ErrorGroups     GroupMap
	WarnGroups      GroupMap
	InfoGroups      GroupMap
	// InfoMessage is a single INFO tag rendered at the top of the output.
	InfoMessage string
	// BasicErrors, when set, marks an execution/config-error result: no
	// PASS/FAIL semantics apply and the status line renders as
	// [CONFIG_ERROR] when any entry carries that marker.
	BasicErrors []string
	ItemDesc    string
	// DefaultGroupDesc is the fallback description for auto-created
	// ERROR01/WARN01/INFO01 groups.
	DefaultGroupDesc string
}

// IsConfigError reports whether this result represents a configuration or
// execution error rather than a pass/fail verdict (spec §3 invariant).
func (r CheckResult) IsConfigError() bool {
	if len(r.BasicErrors) == 0 {
		return false
	}
	return len(r.ErrorGroups) == 0 && len(r.WarnGroups) == 0 && len(r.InfoGroups) == 0
}

// HasConfigErrorMarker reports whether any basic error carries the
// [CONFIG_ERROR] marker, which controls the status line rendering.
func (r CheckResult) HasConfigErrorMarker() bool {
	for _, e := range r.BasicErrors {
		if strings.Contains(e, "[CONFIG_ERROR]") {
			return true
		}
	}
	return false
}

// DetermineResultType computes the legacy ResultType from the four defining
// inputs, per spec §4.1. Ties are broken by the first matching row; this is
// a total, deterministic function.
func DetermineResultType(value Value, isPass, hasPatternItems, hasWaiverValue bool) ResultType {
	switch {
	case value.IsError():
		return ExecutionErrorResult
	case value.IsNA() && !hasPatternItems && !hasWaiverValue:
		if isPass {
			return InfoOnly
		}
		return FailWithValues
	case value.IsNA() && !hasPatternItems && hasWaiverValue:
		if isPass {
			return PassWithWaivers
		}
		return FailWithWaivers
	case value.IsZero() && !hasPatternItems && !hasWaiverValue:
		return PassWithoutValues
	case value.IsZero() && hasPatternItems && !hasWaiverValue:
		return FailWithoutCheckValues
	case value.IsZero() && hasPatternItems && hasWaiverValue:
		if isPass {
			return PassWithFullWaivers
		}
		return FailWithoutCheckValues
	case value.IsPositive() && hasWaiverValue:
		if isPass {
			return PassWithWaivers
		}
		return FailWithWaivers
	case value.IsPositive() && !hasWaiverValue:
		if isPass {
			return PassWithValues
		}
		return FailWithValues
	default:
		if isPass {
			return PassWithValues
		}
		return FailWithValues
	}
}
