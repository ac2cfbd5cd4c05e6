package aggregate

import (
	"fmt"
	"strings"

	"github.com/checkflow/checkflow/internal/format"
)

// ExcelAggregator is the interface a real spreadsheet writer would
// satisfy for spec §4.8 steps 4-5 (per-module Excel, aggregated
// Origin.xlsx/Summary.xlsx). No spreadsheet library appears anywhere in
// the retrieval pack (see DESIGN.md open question 3), so the only
// implementation here is a best-effort flattened-text stand-in; a real
// binary .xlsx writer can be substituted behind this interface without
// touching the dispatcher.
type ExcelAggregator interface {
	WriteModuleSheet(summary ModuleSummary, outPath string) error
	WriteAggregatedSheets(summaries []ModuleSummary, originPath, summaryPath string) error
}

// FlatTextAggregator is the default ExcelAggregator: it renders the same
// information a real workbook would hold as delimited plain text, so the
// dispatcher's steps 4-5 always have somewhere to write without depending
// on a fabricated dependency.
type FlatTextAggregator struct{}

func (FlatTextAggregator) WriteModuleSheet(summary ModuleSummary, outPath string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "module,item_id,passed,config_error,missing\n")
	for _, item := range summary.Items {
		fmt.Fprintf(&b, "%s,%s,%t,%t,%t\n", summary.Module, item.ItemID, item.Passed, item.ConfigError, item.Missing)
	}
	return format.WriteAtomic(outPath, b.String())
}

func (a FlatTextAggregator) WriteAggregatedSheets(summaries []ModuleSummary, originPath, summaryPath string) error {
	var origin, aggregate strings.Builder
	fmt.Fprintf(&aggregate, "module,total,passed,failed\n")
	for _, s := range summaries {
		fmt.Fprintf(&aggregate, "%s,%d,%d,%d\n", s.Module, s.Total, s.Passed, s.Failed)
		fmt.Fprintf(&origin, "===== %s =====\n", s.Module)
		for _, item := range s.Items {
			fmt.Fprintf(&origin, "%s: passed=%t config_error=%t missing=%t\n", item.ItemID, item.Passed, item.ConfigError, item.Missing)
		}
	}
	if err := format.WriteAtomic(originPath, origin.String()); err != nil {
		return fmt.Errorf("write origin sheet: %w", err)
	}
	return format.WriteAtomic(summaryPath, aggregate.String())
}
