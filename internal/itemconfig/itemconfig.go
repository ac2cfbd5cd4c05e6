// Package itemconfig loads a single check item's declarative
// configuration and classifies it into one of the four checker types
// (spec §3, §4.6).
package itemconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/checkflow/checkflow/internal/xerrors"
	"github.com/checkflow/checkflow/pkg/models"
)

// Type is the four-way checker classification derived from an
// ItemConfig's requirements/waivers shape.
type Type int

const (
	// Type1 is a boolean existence check: no pattern items, no waivers.
	Type1 Type = iota + 1
	// Type2 is a pattern-based value check with no waivers.
	Type2
	// Type3 is a pattern-based value check with waivers.
	Type3
	// Type4 is a boolean check with waivers.
	Type4
)

func (t Type) String() string {
	switch t {
	case Type1:
		return "Type1"
	case Type2:
		return "Type2"
	case Type3:
		return "Type3"
	case Type4:
		return "Type4"
	default:
		return "TypeUnknown"
	}
}

// DetectType classifies cfg per spec §4.6's table. requirements.value is
// the primary discriminator (N/A vs a declared count); pattern_items is
// expected to be non-empty exactly when requirements.value is set, per the
// table's "ignored"/"non-empty" correlation, but is not consulted directly
// so a config that only sets one of the two still classifies correctly.
// waivers.value only counts as "has waivers" when positive — N/A and 0
// both fall to the Type 1/2 side of the table, 0 being the
// convert-to-info display mode handled separately by ShouldConvertToInfo.
func DetectType(cfg models.ItemConfig) Type {
	hasValue := !cfg.Requirements.Value.IsNA()
	hasWaiver := cfg.Waivers.Value.IsPositive()

	switch {
	case hasValue && hasWaiver:
		return Type3
	case hasValue:
		return Type2
	case hasWaiver:
		return Type4
	default:
		return Type1
	}
}

// ShouldConvertToInfo reports whether this item is in the Types 1/2
// "waivers.value = 0" display mode, where FAIL/WARN severities collapse to
// INFO and the item is forced to pass.
func ShouldConvertToInfo(cfg models.ItemConfig, t Type) bool {
	return (t == Type1 || t == Type2) && cfg.Waivers.Value.IsZero()
}

// Load reads and parses <itemsDir>/<itemID>.yaml, attaching the
// item and module identity that the bare YAML doesn't carry.
func Load(itemsDir, module, itemID string) (models.ItemConfig, error) {
	path := filepath.Join(itemsDir, itemID+".yaml")
	data, err := os.ReadFile(path) // #nosec G304 - path is built from a validated module/item pair
	if err != nil {
		return models.ItemConfig{}, &xerrors.ConfigError{
			Message: "failed to read item config", Cause: err, ItemID: itemID, FileName: path,
		}
	}

	var cfg models.ItemConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return models.ItemConfig{}, &xerrors.ConfigError{
			Message: "failed to parse item config", Cause: err, ItemID: itemID, FileName: path,
		}
	}
	cfg.ItemID = itemID
	cfg.CheckModule = module
	return cfg, nil
}

// ResolveInputFiles substitutes ${CHECKLIST_ROOT} in every input file path
// and returns the resolved list, preserving order.
func ResolveInputFiles(cfg models.ItemConfig, checklistRoot string) []string {
	resolved := make([]string, len(cfg.InputFiles))
	for i, f := range cfg.InputFiles {
		resolved[i] = strings.ReplaceAll(f, "${CHECKLIST_ROOT}", checklistRoot)
	}
	return resolved
}

// ValidateInputFiles resolves cfg's input files against checklistRoot and
// reports which, if any, do not exist on disk.
func ValidateInputFiles(cfg models.ItemConfig, checklistRoot string) (resolved []string, missing []string) {
	resolved = ResolveInputFiles(cfg, checklistRoot)
	for _, f := range resolved {
		if _, err := os.Stat(f); err != nil {
			missing = append(missing, f)
		}
	}
	return resolved, missing
}

// MissingFilesError builds the [CONFIG_ERROR]-marked result the base
// checker returns when required input files are absent (spec §4.6,
// "create_missing_files_error").
func MissingFilesError(cfg models.ItemConfig, missing []string) models.CheckResult {
	lines := make([]string, 0, len(missing))
	for _, f := range missing {
		lines = append(lines, fmt.Sprintf("[CONFIG_ERROR]: missing input file: %s", f))
	}
	return models.CheckResult{
		ItemDesc:    cfg.ItemDesc,
		BasicErrors: lines,
	}
}
