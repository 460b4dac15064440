package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// Values here seed every analysis request; per-request settings override.
const DefaultConfigPath = "config/tuning.defaults.json"

// Tuning holds the adjustable sampling and statistics parameters for the
// triage engine, loaded from a JSON file at startup. The same schema
// seeds per-request defaults via RequestFromTuning.
//
// All fields are pointers so a partial config file only overrides what it
// names; omitted fields retain their built-in defaults.
type Tuning struct {
	// Occlusion sampling params
	CoarseSamples   *int     `json:"coarse_samples,omitempty"`
	FineSamples     *int     `json:"fine_samples,omitempty"`
	Sensitivity     *float64 `json:"sensitivity,omitempty"`
	VisibleHitLimit *int     `json:"visible_hit_limit,omitempty"`
	Workers         *int     `json:"workers,omitempty"`

	// Statistics params
	GapRatio *float64 `json:"gap_ratio,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuning returns a Tuning with all fields set to nil.
// Use LoadTuning to load actual values from a defaults file.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// LoadTuning loads a Tuning from a JSON file. The file is validated to
// ensure it has a .json extension and is under the max file size. Fields
// omitted from the JSON file retain their default values, so partial
// configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Tuning) Validate() error {
	if c.Sensitivity != nil {
		if *c.Sensitivity <= 0 || *c.Sensitivity > 1 {
			return fmt.Errorf("sensitivity must be in (0,1], got %f", *c.Sensitivity)
		}
	}
	if c.CoarseSamples != nil && *c.CoarseSamples < 1 {
		return fmt.Errorf("coarse_samples must be positive, got %d", *c.CoarseSamples)
	}
	if c.FineSamples != nil && *c.FineSamples < 1 {
		return fmt.Errorf("fine_samples must be positive, got %d", *c.FineSamples)
	}
	if c.VisibleHitLimit != nil && *c.VisibleHitLimit < 1 {
		return fmt.Errorf("visible_hit_limit must be positive, got %d", *c.VisibleHitLimit)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.GapRatio != nil && *c.GapRatio <= 1 {
		return fmt.Errorf("gap_ratio must be greater than 1, got %f", *c.GapRatio)
	}
	return nil
}

// GetCoarseSamples returns the coarse_samples value or the default.
func (c *Tuning) GetCoarseSamples() int {
	if c.CoarseSamples == nil {
		return 20 // default
	}
	return *c.CoarseSamples
}

// GetFineSamples returns the fine_samples value or the default.
func (c *Tuning) GetFineSamples() int {
	if c.FineSamples == nil {
		return 200 // default
	}
	return *c.FineSamples
}

// GetSensitivity returns the sensitivity value or the default.
func (c *Tuning) GetSensitivity() float64 {
	if c.Sensitivity == nil {
		return 0.95 // default
	}
	return *c.Sensitivity
}

// GetVisibleHitLimit returns the visible_hit_limit value or the default.
func (c *Tuning) GetVisibleHitLimit() int {
	if c.VisibleHitLimit == nil {
		return 5 // default
	}
	return *c.VisibleHitLimit
}

// GetWorkers returns the workers value, 0 meaning one per CPU.
func (c *Tuning) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetGapRatio returns the gap_ratio value or the default.
func (c *Tuning) GetGapRatio() float64 {
	if c.GapRatio == nil {
		return 3.0 // default
	}
	return *c.GapRatio
}
