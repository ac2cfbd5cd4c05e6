package dispatch

import "runtime"

// Mode is the dispatcher's chosen execution granularity (spec §4.8 step 3).
type Mode int

const (
	ModeItem Mode = iota
	ModeModule
	ModeSerial
)

func (m Mode) String() string {
	switch m {
	case ModeItem:
		return "item"
	case ModeModule:
		return "module"
	default:
		return "serial"
	}
}

// Flags are the dispatcher's explicit mode/behavior overrides (spec §4.8's
// inputs).
type Flags struct {
	Serial           bool
	ItemParallel     bool
	UseModuleRunners bool
	SkipDistribution bool
	EnableFileCache  bool
	CacheDir         string
	MaxCacheSize     int
}

// DecideMode resolves Flags plus the discovered module count into an
// execution Mode, per spec §4.8 step 3: explicit flags win; otherwise
// item-level when more than one module is in play, else serial
// module-level.
func DecideMode(flags Flags, moduleCount int) Mode {
	switch {
	case flags.Serial:
		return ModeSerial
	case flags.ItemParallel:
		return ModeItem
	case flags.UseModuleRunners:
		return ModeModule
	case moduleCount > 1:
		return ModeItem
	default:
		return ModeSerial
	}
}

// WorkerCount implements spec §4.8 step 4's exact formulas.
func WorkerCount(mode Mode, moduleCount, totalItems int, cpuCount int) int {
	if cpuCount <= 0 {
		cpuCount = 1
	}
	switch mode {
	case ModeSerial:
		return 1
	case ModeItem:
		return min(cpuCount, totalItems)
	case ModeModule:
		switch {
		case moduleCount <= 1:
			return 1
		case moduleCount == 2:
			return 2
		case moduleCount <= 8:
			return min(max(2, (cpuCount*3)/4), moduleCount)
		default:
			return min(cpuCount, moduleCount)
		}
	default:
		return 1
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// CPUCount returns the number of usable CPUs for worker-count planning.
func CPUCount() int {
	return runtime.NumCPU()
}
