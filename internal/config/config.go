package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Config holds the application configuration
type Config struct {
	Masks    MasksConfig    `json:"masks"`
	Overlays OverlaysConfig `json:"overlays"`
	Summary  SummaryConfig  `json:"summary"`
	Runner   RunnerConfig   `json:"runner"`
}

// MasksConfig holds configuration for mask generation and writing
type MasksConfig struct {
	DirName        string `json:"dir_name"`        // per-dataset mask subdirectory
	Suffix         string `json:"suffix"`          // binary mask filename suffix
	InstanceSuffix string `json:"instance_suffix"` // instance mask filename suffix
	InstanceMode   bool   `json:"instance_mode"`   // label cells 1..N instead of binary
}

// OverlaysConfig holds configuration for the sanity-check overlay renderer
type OverlaysConfig struct {
	Enabled     bool    `json:"enabled"`
	DirName     string  `json:"dir_name"`
	SampleLimit int     `json:"sample_limit"` // overlays written per dataset
	Suffix      string  `json:"suffix"`
	StrokeWidth float64 `json:"stroke_width"` // contour outline width in pixels
}

// SummaryConfig holds configuration for the per-run CSV summaries
type SummaryConfig struct {
	Enabled     bool   `json:"enabled"`
	DirName     string `json:"dir_name"` // results directory, relative to dataset root
	DatasetFile string `json:"dataset_file"`
	MaskFile    string `json:"mask_file"`
}

// RunnerConfig holds configuration for batch execution
type RunnerConfig struct {
	Workers int `json:"workers"` // 0 = one per CPU core
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Masks: MasksConfig{
			DirName:        "masks",
			Suffix:         "_mask",
			InstanceSuffix: "_masks",
		},
		Overlays: OverlaysConfig{
			Enabled:     true,
			DirName:     "overlays",
			SampleLimit: 12,
			Suffix:      "_overlay",
			StrokeWidth: 1,
		},
		Summary: SummaryConfig{
			Enabled:     true,
			DirName:     "results",
			DatasetFile: "mask_summary.csv",
			MaskFile:    "mask_stats.csv",
		},
		Runner: RunnerConfig{
			Workers: 0,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Masks.DirName == "" {
		return fmt.Errorf("masks.dir_name cannot be empty")
	}

	if c.Masks.Suffix == "" {
		return fmt.Errorf("masks.suffix cannot be empty")
	}

	if c.Masks.Suffix == c.Overlays.Suffix {
		return fmt.Errorf("masks.suffix and overlays.suffix must differ")
	}

	if c.Overlays.SampleLimit < 0 {
		return fmt.Errorf("overlays.sample_limit cannot be negative")
	}

	if c.Overlays.StrokeWidth < 0 {
		return fmt.Errorf("overlays.stroke_width cannot be negative")
	}

	if c.Runner.Workers < 0 {
		return fmt.Errorf("runner.workers cannot be negative")
	}

	return nil
}

// WorkerCount resolves the number of parallel workers to use
func (c *Config) WorkerCount() int {
	if c.Runner.Workers > 0 {
		return c.Runner.Workers
	}
	return runtime.NumCPU()
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "maskgen", "config.json")
}
