package checker

import "testing"

func TestMatchPatternItemsFindsMatchingLines(t *testing.T) {
	lines := []string{
		"clock CLK1 period 2.0ns",
		"clock CLK2 period 1.5ns",
		"unrelated line",
	}
	found, err := MatchPatternItems([]string{
		`clock %{WORD:name} period %{NUMBER:period}ns`,
		`reset %{WORD:name}`,
	}, lines)
	if err != nil {
		t.Fatalf("MatchPatternItems: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one pattern to match, got %v", found)
	}
	values, ok := found[`clock %{WORD:name} period %{NUMBER:period}ns`]
	if !ok {
		t.Fatalf("expected the clock pattern to match, got %v", found)
	}
	if values["name"] != "CLK1" {
		t.Errorf("name = %q, want CLK1", values["name"])
	}
}

func TestMatchPatternItemsInvalidPattern(t *testing.T) {
	_, err := MatchPatternItems([]string{"%{NONEXISTENT_PATTERN:val}"}, []string{"anything"})
	if err == nil {
		t.Error("expected a compile error for an unknown grok pattern")
	}
}
