// Package waiver implements matching and reason formatting for waiver
// declarations (spec §4.4): deciding which violations a project has
// accepted, tracking which waiver entries were actually used, and
// rendering the tagged reason text shown in logs and reports.
package waiver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/checkflow/checkflow/pkg/models"
)

// Tag marks why a detail's severity was overridden by waiver handling.
type Tag string

const (
	// TagWaiver marks a real waiver acceptance (Types 3, 4).
	TagWaiver Tag = "[WAIVER]"
	// TagWaivedInfo marks a declarative waive_items entry shown under the
	// waivers.value = 0 display mode.
	TagWaivedInfo Tag = "[WAIVED_INFO]"
	// TagWaivedAsInfo marks a violation down-graded from FAIL/WARN to INFO
	// because waivers.value = 0.
	TagWaivedAsInfo Tag = "[WAIVED_AS_INFO]"
)

// Map is the set of configured waiver entries, keyed by the declared name
// (which may be an exact token, a `*`-wildcard, or a substring). Keys
// preserve declaration order so "first matching key" is well defined.
type Map struct {
	keys    []string
	entries map[string]models.WaiveEntry
}

// NewMap builds a Map from an ItemConfig's waive_items list, in the order
// they were declared.
func NewMap(entries []models.WaiveEntry) Map {
	m := Map{
		keys:    make([]string, 0, len(entries)),
		entries: make(map[string]models.WaiveEntry, len(entries)),
	}
	for _, e := range entries {
		if _, exists := m.entries[e.Name]; !exists {
			m.keys = append(m.keys, e.Name)
		}
		m.entries[e.Name] = e
	}
	return m
}

// Len reports the number of distinct waiver keys.
func (m Map) Len() int { return len(m.keys) }

// Tracker records which waiver keys have been consumed while matching a
// batch of violations, so that unused keys can be reported afterward.
type Tracker struct {
	waivers Map
	used    map[string]bool
}

// NewTracker returns a Tracker over waivers with no keys yet used.
func NewTracker(waivers Map) *Tracker {
	return &Tracker{waivers: waivers, used: make(map[string]bool, waivers.Len())}
}

// Match looks up item against the tracker's waiver map using
// MatchWaiverEntry and, on a hit, immediately marks that key used — a key
// retires at first match, not after the caller has scanned every violation
// in the group (spec §9, open question 4).
func (t *Tracker) Match(item string) (models.WaiveEntry, bool) {
	key, ok := MatchWaiverEntry(item, t.waivers)
	if !ok {
		return models.WaiveEntry{}, false
	}
	t.used[key] = true
	return t.waivers.entries[key], true
}

// Unused returns the waiver keys that were never matched, in declaration
// order.
func (t *Tracker) Unused() []string {
	var unused []string
	for _, key := range t.waivers.keys {
		if !t.used[key] {
			unused = append(unused, key)
		}
	}
	return unused
}

// MatchWaiverEntry returns the first key in waivers (in declaration order)
// that matches item, trying in order: (1) exact case-insensitive equality,
// (2) wildcard match if the key contains '*' (replaced by ".*" and
// anchored), (3) substring fallback if the key has no wildcard characters.
// Each call is independent; callers that need "matched at most once"
// semantics use a Tracker instead.
func MatchWaiverEntry(item string, waivers Map) (string, bool) {
	lowerItem := strings.ToLower(item)

	for _, key := range waivers.keys {
		if strings.ToLower(key) == lowerItem {
			return key, true
		}
	}

	for _, key := range waivers.keys {
		if !strings.Contains(key, "*") {
			continue
		}
		pattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(key), `\*`, ".*") + "$"
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			continue
		}
		if re.MatchString(item) {
			return key, true
		}
	}

	for _, key := range waivers.keys {
		if strings.Contains(key, "*") {
			continue
		}
		if strings.Contains(lowerItem, strings.ToLower(key)) {
			return key, true
		}
	}

	return "", false
}

// FormatReason renders the canonical "<base>: <reason><tag>" (or
// "<base><tag>" when reason is empty) template used in every detail line
// that carries a waiver tag.
func FormatReason(base, reason string, tag Tag) string {
	if reason == "" {
		return fmt.Sprintf("%s%s", base, tag)
	}
	return fmt.Sprintf("%s: %s%s", base, reason, tag)
}
