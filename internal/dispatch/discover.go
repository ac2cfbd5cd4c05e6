// Package dispatch implements the flow runner (spec §4.8): module/item
// discovery, execution-mode and worker-count planning, per-task bounded
// fan-out with timeouts, and the deterministic aggregation sequence that
// follows.
package dispatch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Item identifies a single check item within a module.
type Item struct {
	Module string
	ItemID string
}

// DiscoverModules lists the module directories directly under
// <root>/Check_modules, sorted for deterministic iteration.
func DiscoverModules(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, "Check_modules"))
	if err != nil {
		return nil, err
	}
	var modules []string
	for _, e := range entries {
		if e.IsDir() {
			modules = append(modules, e.Name())
		}
	}
	sort.Strings(modules)
	return modules, nil
}

// DiscoverItems lists the item ids configured for module under
// <root>/Check_modules/<module>/inputs/items/*.yaml, sorted for
// deterministic iteration.
func DiscoverItems(root, module string) ([]string, error) {
	itemsDir := filepath.Join(root, "Check_modules", module, "inputs", "items")
	entries, err := os.ReadDir(itemsDir)
	if err != nil {
		return nil, err
	}
	var items []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
			items = append(items, strings.TrimSuffix(name, ext))
		}
	}
	sort.Strings(items)
	return items, nil
}

// DiscoverAll expands every module (or just moduleFilter, when non-empty)
// into its full Item list, optionally narrowed to itemFilter.
func DiscoverAll(root, moduleFilter string, itemFilter []string) ([]Item, error) {
	var modules []string
	if moduleFilter != "" {
		modules = []string{moduleFilter}
	} else {
		var err error
		modules, err = DiscoverModules(root)
		if err != nil {
			return nil, err
		}
	}

	var wanted map[string]bool
	if len(itemFilter) > 0 {
		wanted = make(map[string]bool, len(itemFilter))
		for _, id := range itemFilter {
			wanted[id] = true
		}
	}

	var items []Item
	for _, module := range modules {
		ids, err := DiscoverItems(root, module)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if wanted != nil && !wanted[id] {
				continue
			}
			items = append(items, Item{Module: module, ItemID: id})
		}
	}
	return items, nil
}
