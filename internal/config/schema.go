// Package config loads and validates the project-level checkflow
// configuration (global defaults, not the per-item configuration — see
// internal/itemconfig for that).
package config

import "time"

// Config is the top-level project configuration, typically
// <root>/checkflow.yaml.
type Config struct {
	Version string            `yaml:"version"`
	Vars    map[string]string `yaml:"vars"`

	// ChecklistRoot is substituted for ${CHECKLIST_ROOT} placeholders in
	// item input_files (spec §3, §6).
	ChecklistRoot string `yaml:"checklist_root"`

	// Parallel is the project's default parallelism. It is loaded and
	// defaulted, but the run command does not read it: its worker count
	// comes from dispatch.WorkerCount.
	Parallel int `yaml:"parallel"`

	// ItemTimeout is the default per-item timeout (spec §4.8: 300s).
	ItemTimeout Duration `yaml:"item_timeout"`

	// ErrorExitCode is loaded and defaulted, but the run command does not
	// read it: its exit code is the first non-zero item exit code.
	ErrorExitCode int `yaml:"error_exit_code"`

	// Cache holds the default result-cache configuration (spec §4.7).
	Cache CacheConfig `yaml:"cache"`

	// yamlRoot stores the parsed YAML node tree for line number lookups.
	yamlRoot interface{} `yaml:"-"`
}

// CacheConfig configures the result cache (C7).
type CacheConfig struct {
	Enabled      bool   `yaml:"enabled"`
	MaxEntries   int    `yaml:"max_entries"`
	FileCacheDir string `yaml:"file_cache_dir"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like
// "300s".
type Duration time.Duration

// AsDuration returns d as a time.Duration.
func (d Duration) AsDuration() time.Duration { return time.Duration(d) }

// DefaultItemTimeout is the per-item wall-clock timeout (spec §4.8, §5, §7).
const DefaultItemTimeout = 300 * time.Second

// DefaultParallel is used when the project config and CLI both leave
// parallelism unset.
const DefaultParallel = 4

// DefaultErrorExitCode fills Config.ErrorExitCode when the project config
// leaves it unset.
const DefaultErrorExitCode = 1

// DefaultMaxCacheEntries is the result cache's default LRU capacity.
const DefaultMaxCacheEntries = 200

// ConfigFileNames is the list of project config file names to search for,
// in order.
var ConfigFileNames = []string{
	"checkflow.yaml",
	"checkflow.yml",
	".checkflow.yaml",
	".checkflow.yml",
}
