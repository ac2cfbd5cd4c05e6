package models

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestItemConfigUnmarshalYAML(t *testing.T) {
	data := []byte(`
item_desc: "Library check"
requirements:
  value: "N/A"
  pattern_items: []
waivers:
  value: 2
  waive_items:
    - "libfoo"
    - name: "libbar"
      reason: "approved by design review"
input_files:
  - "${CHECKLIST_ROOT}/reports/clean.rpt"
`)
	var cfg ItemConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !cfg.Requirements.Value.IsNA() {
		t.Errorf("expected requirements.value N/A, got %v", cfg.Requirements.Value)
	}
	if cfg.Waivers.Value.Count != 2 {
		t.Errorf("expected waivers.value=2, got %v", cfg.Waivers.Value)
	}
	if len(cfg.Waivers.WaiveItems) != 2 {
		t.Fatalf("expected 2 waive items, got %d", len(cfg.Waivers.WaiveItems))
	}
	if cfg.Waivers.WaiveItems[0].Name != "libfoo" || cfg.Waivers.WaiveItems[0].Reason != "" {
		t.Errorf("unexpected bare waive entry: %+v", cfg.Waivers.WaiveItems[0])
	}
	if cfg.Waivers.WaiveItems[1].Name != "libbar" || cfg.Waivers.WaiveItems[1].Reason != "approved by design review" {
		t.Errorf("unexpected pair waive entry: %+v", cfg.Waivers.WaiveItems[1])
	}
	if len(cfg.InputFiles) != 1 {
		t.Fatalf("expected 1 input file, got %d", len(cfg.InputFiles))
	}
}

func TestRequirementsHasPatternItems(t *testing.T) {
	r := Requirements{PatternItems: []string{"a", "b"}}
	if !r.HasPatternItems() {
		t.Error("expected HasPatternItems true")
	}
	r2 := Requirements{}
	if r2.HasPatternItems() {
		t.Error("expected HasPatternItems false")
	}
}
