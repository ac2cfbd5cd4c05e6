package checker

import (
	"fmt"

	"github.com/checkflow/checkflow/internal/grok"
)

// MatchPatternItems runs a Type 2/3 item's requirements.pattern_items
// against lines, where each pattern_items entry is itself a grok pattern
// (spec §4.6's "pattern-based value check"). It returns, for every
// pattern that matched at least one line, the fields extracted from its
// first matching line.
func MatchPatternItems(patternItems []string, lines []string) (map[string]map[string]string, error) {
	found := make(map[string]map[string]string)
	for _, pattern := range patternItems {
		matcher, err := grok.New([]string{pattern})
		if err != nil {
			return nil, fmt.Errorf("compile pattern_item %q: %w", pattern, err)
		}
		for _, line := range lines {
			values, err := matcher.Match(line)
			if err != nil {
				return nil, fmt.Errorf("match pattern_item %q: %w", pattern, err)
			}
			if len(values) > 0 {
				found[pattern] = values
				break
			}
		}
	}
	return found, nil
}
