package models

import "gopkg.in/yaml.v3"

// ItemConfig is what a checker receives: the declarative assignment of one
// (module, item) pair plus its requirements, waivers and input files
// (spec §3, §6).
type ItemConfig struct {
	ItemID       string       `yaml:"-"`
	CheckModule  string       `yaml:"-"`
	ItemDesc     string       `yaml:"item_desc"`
	Requirements Requirements `yaml:"requirements"`
	Waivers      Waivers      `yaml:"waivers"`
	InputFiles   []string     `yaml:"input_files"`
}

// Requirements declares the expectations a checker's findings are compared
// against.
type Requirements struct {
	Value        Value    `yaml:"value"`
	PatternItems []string `yaml:"pattern_items"`
}

// Waivers declares which violations (or classes of violations) are
// accepted, and in what display mode.
type Waivers struct {
	Value      Value        `yaml:"value"`
	WaiveItems []WaiveEntry `yaml:"waive_items"`
}

// WaiveEntry is either a bare string (the matched token) or a
// {name, reason} pair.
type WaiveEntry struct {
	Name   string
	Reason string
}

// HasPatternItems reports whether requirements declare pattern-based
// checking (Type 2/3).
func (r Requirements) HasPatternItems() bool {
	return len(r.PatternItems) > 0
}

// HasWaiverValue reports whether waivers are configured (Type 3/4), i.e.
// waivers.value is not N/A.
func (w Waivers) HasWaiverValue() bool {
	return !w.Value.IsNA()
}

// UnmarshalYAML implements custom unmarshaling for Value: it may appear in
// YAML as an integer or as the string "N/A" (or "ERROR").
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var asInt int
	if err := node.Decode(&asInt); err == nil {
		*v = Count(asInt)
		return nil
	}
	var asString string
	if err := node.Decode(&asString); err != nil {
		return err
	}
	switch asString {
	case "N/A", "n/a", "":
		*v = NA()
	case "ERROR":
		*v = ErrorValue()
	default:
		*v = NA()
	}
	return nil
}

// MarshalYAML implements custom marshaling for Value, rendering N/A, ERROR,
// or the integer count.
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case ValueNA:
		return "N/A", nil
	case ValueError:
		return "ERROR", nil
	default:
		return v.Count, nil
	}
}

// UnmarshalYAML implements custom unmarshaling for WaiveEntry: a bare
// string becomes {Name: s}, a {name, reason} mapping is decoded directly.
func (w *WaiveEntry) UnmarshalYAML(node *yaml.Node) error {
	var asString string
	if err := node.Decode(&asString); err == nil {
		*w = WaiveEntry{Name: asString}
		return nil
	}
	var alias struct {
		Name   string `yaml:"name"`
		Reason string `yaml:"reason"`
	}
	if err := node.Decode(&alias); err != nil {
		return err
	}
	*w = WaiveEntry{Name: alias.Name, Reason: alias.Reason}
	return nil
}
