package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default imaging values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for imaging parameters.
// The schema matches the /api/config endpoint so the same JSON can be used
// for both startup configuration and runtime inspection. All fields are
// pointers so a partial config file only overrides what it names.
type TuningConfig struct {
	// Imaging-space params
	AngularBinSizeDeg    *float64 `json:"angular_bin_size_deg,omitempty"`
	IntersectionWidthDeg *float64 `json:"intersection_width_deg,omitempty"`

	// Event selection params
	SourceEnergyKeV       *float64 `json:"source_energy_kev,omitempty"`
	PhotopeakThresholdKeV *float64 `json:"photopeak_threshold_kev,omitempty"`
	MaxEvents             *int     `json:"max_events,omitempty"`

	// Backprojection execution params
	Workers *int `json:"workers,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.AngularBinSizeDeg != nil {
		if *c.AngularBinSizeDeg <= 0 || *c.AngularBinSizeDeg > 180 {
			return fmt.Errorf("angular_bin_size_deg must be in (0, 180], got %f", *c.AngularBinSizeDeg)
		}
	}
	if c.IntersectionWidthDeg != nil {
		if *c.IntersectionWidthDeg <= 0 {
			return fmt.Errorf("intersection_width_deg must be positive, got %f", *c.IntersectionWidthDeg)
		}
	}
	if c.SourceEnergyKeV != nil {
		if *c.SourceEnergyKeV <= 0 {
			return fmt.Errorf("source_energy_kev must be positive, got %f", *c.SourceEnergyKeV)
		}
	}
	if c.PhotopeakThresholdKeV != nil {
		if *c.PhotopeakThresholdKeV < 0 {
			return fmt.Errorf("photopeak_threshold_kev must be non-negative, got %f", *c.PhotopeakThresholdKeV)
		}
	}
	if c.MaxEvents != nil {
		if *c.MaxEvents < 0 {
			return fmt.Errorf("max_events must be non-negative, got %d", *c.MaxEvents)
		}
	}
	if c.Workers != nil {
		if *c.Workers < 0 {
			return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
		}
	}
	return nil
}

// GetAngularBinSizeDeg returns the angular_bin_size_deg value or the default.
func (c *TuningConfig) GetAngularBinSizeDeg() float64 {
	if c.AngularBinSizeDeg == nil {
		return 1.0
	}
	return *c.AngularBinSizeDeg
}

// GetIntersectionWidthDeg returns the intersection_width_deg value or the default.
func (c *TuningConfig) GetIntersectionWidthDeg() float64 {
	if c.IntersectionWidthDeg == nil {
		return 0.5
	}
	return *c.IntersectionWidthDeg
}

// GetSourceEnergyKeV returns the source_energy_kev value or the default.
// The default is the Cs-137 line.
func (c *TuningConfig) GetSourceEnergyKeV() float64 {
	if c.SourceEnergyKeV == nil {
		return 661.657
	}
	return *c.SourceEnergyKeV
}

// GetPhotopeakThresholdKeV returns the photopeak_threshold_kev value or the default.
func (c *TuningConfig) GetPhotopeakThresholdKeV() float64 {
	if c.PhotopeakThresholdKeV == nil {
		return 660.0
	}
	return *c.PhotopeakThresholdKeV
}

// GetMaxEvents returns the max_events value or the default (0 = no limit).
func (c *TuningConfig) GetMaxEvents() int {
	if c.MaxEvents == nil {
		return 0
	}
	return *c.MaxEvents
}

// GetWorkers returns the workers value or the default (0 = serial).
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
