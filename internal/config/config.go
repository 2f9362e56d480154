// Package config provides configuration types and defaults for mindmesh.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for mindmesh.
type Config struct {
	Document    DocumentConfig    `yaml:"document" mapstructure:"document"`
	Editor      EditorConfig      `yaml:"editor" mapstructure:"editor"`
	TUI         TUIConfig         `yaml:"tui" mapstructure:"tui"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
}

// DocumentConfig selects the document opened by the editor.
type DocumentConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
	// Sample seeds documents that do not exist yet: "none", "static" or "procedural".
	Sample string `yaml:"sample" mapstructure:"sample"`
}

// EditorConfig holds placement settings for new nodes.
type EditorConfig struct {
	ChildDistance float64 `yaml:"child_distance" mapstructure:"child_distance"`
	// Jitter perturbs fan angles slightly. JitterSeed 0 seeds from the clock.
	Jitter     bool   `yaml:"jitter" mapstructure:"jitter"`
	JitterSeed uint64 `yaml:"jitter_seed" mapstructure:"jitter_seed"`
}

// TUIConfig holds terminal canvas settings.
type TUIConfig struct {
	// Model units covered by one terminal column and row.
	CellWidth  float64 `yaml:"cell_width" mapstructure:"cell_width"`
	CellHeight float64 `yaml:"cell_height" mapstructure:"cell_height"`
	// AutosaveInterval 0 saves only on demand.
	AutosaveInterval time.Duration `yaml:"autosave_interval" mapstructure:"autosave_interval"`
	Watch            bool          `yaml:"watch" mapstructure:"watch"`
	ShowHelp         bool          `yaml:"show_help" mapstructure:"show_help"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Format is used for paths without a known extension.
	Format        string        `yaml:"format" mapstructure:"format"`
	WatchDebounce time.Duration `yaml:"watch_debounce" mapstructure:"watch_debounce"`
}

// LogRotationConfig holds settings for log file rotation.
// Used for the TUI debug log (lumberjack-based automatic rotation).
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// PathsConfig holds file paths for logs and session state.
type PathsConfig struct {
	Log      string `yaml:"log" mapstructure:"log"`
	Activity string `yaml:"activity" mapstructure:"activity"`
	State    string `yaml:"state" mapstructure:"state"`
}

// Sample seeds.
const (
	SampleNone       = "none"
	SampleStatic     = "static"
	SampleProcedural = "procedural"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Document: DocumentConfig{
			Path:   "mindmap.json",
			Sample: SampleNone,
		},
		Editor: EditorConfig{
			ChildDistance: 300,
		},
		TUI: TUIConfig{
			CellWidth:        10,
			CellHeight:       20,
			AutosaveInterval: 30 * time.Second,
			Watch:            true,
		},
		Storage: StorageConfig{
			Format:        "json",
			WatchDebounce: 200 * time.Millisecond,
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Paths: PathsConfig{
			Log:      ".mindmesh/mindmesh.log",
			Activity: ".mindmesh/activity.jsonl",
			State:    ".mindmesh/state.json",
		},
	}
}

// YAML renders the configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
