// Package config loads the optional service configuration file. Fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServiceConfig is the root configuration for the analytics service. The
// schema mirrors the train endpoint's request body where they overlap so the
// same values can be used for startup defaults and per-request overrides.
type ServiceConfig struct {
	// Storage
	DBPath    *string `json:"db_path,omitempty"`
	TableName *string `json:"table_name,omitempty"`

	// Training defaults
	DefaultTarget   *string  `json:"default_target,omitempty"`
	DefaultTestSize *float64 `json:"default_test_size,omitempty"`
	DefaultSeed     *int64   `json:"default_seed,omitempty"`
	ForestTrees     *int     `json:"forest_trees,omitempty"`
	MinLabeledRows  *int     `json:"min_labeled_rows,omitempty"`

	// Charting
	ChartCrop     *string             `json:"chart_crop,omitempty"`
	CropSynonyms  map[string][]string `json:"crop_synonyms,omitempty"`
	ForecastYears *int                `json:"forecast_years,omitempty"`
}

// Empty returns a ServiceConfig with all fields unset.
func Empty() *ServiceConfig {
	return &ServiceConfig{}
}

// Load reads a ServiceConfig from a JSON file. Omitted fields keep their
// defaults, so partial configs are safe.
func Load(path string) (*ServiceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that configured values are usable.
func (c *ServiceConfig) Validate() error {
	if c.DefaultTestSize != nil {
		if *c.DefaultTestSize <= 0 || *c.DefaultTestSize >= 1 {
			return fmt.Errorf("default_test_size must be in (0,1), got %f", *c.DefaultTestSize)
		}
	}
	if c.ForestTrees != nil && *c.ForestTrees < 1 {
		return fmt.Errorf("forest_trees must be positive, got %d", *c.ForestTrees)
	}
	if c.MinLabeledRows != nil && *c.MinLabeledRows < 1 {
		return fmt.Errorf("min_labeled_rows must be positive, got %d", *c.MinLabeledRows)
	}
	if c.ForecastYears != nil && *c.ForecastYears < 1 {
		return fmt.Errorf("forecast_years must be positive, got %d", *c.ForecastYears)
	}
	return nil
}

// GetDBPath returns the sqlite database path or the default.
func (c *ServiceConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "plantio.db"
	}
	return *c.DBPath
}

// GetTableName returns the dataset table name or the default.
func (c *ServiceConfig) GetTableName() string {
	if c.TableName == nil || *c.TableName == "" {
		return "plantio_raw"
	}
	return *c.TableName
}

// GetDefaultTarget returns the default training target field.
func (c *ServiceConfig) GetDefaultTarget() string {
	if c.DefaultTarget == nil || *c.DefaultTarget == "" {
		return "yield_kg_ha"
	}
	return *c.DefaultTarget
}

// GetDefaultTestSize returns the default held-out test fraction.
func (c *ServiceConfig) GetDefaultTestSize() float64 {
	if c.DefaultTestSize == nil {
		return 0.2
	}
	return *c.DefaultTestSize
}

// GetDefaultSeed returns the default random seed for splits and forests.
func (c *ServiceConfig) GetDefaultSeed() int64 {
	if c.DefaultSeed == nil {
		return 42
	}
	return *c.DefaultSeed
}

// GetForestTrees returns the tree count for random forest training.
func (c *ServiceConfig) GetForestTrees() int {
	if c.ForestTrees == nil {
		return 50
	}
	return *c.ForestTrees
}

// GetMinLabeledRows returns the minimum labeled rows required to train.
func (c *ServiceConfig) GetMinLabeledRows() int {
	if c.MinLabeledRows == nil {
		return 20
	}
	return *c.MinLabeledRows
}

// GetChartCrop returns the crop highlighted in the production-by-year chart.
func (c *ServiceConfig) GetChartCrop() string {
	if c.ChartCrop == nil || *c.ChartCrop == "" {
		return "soyabean"
	}
	return *c.ChartCrop
}

// GetForecastYears returns the forecast horizon for predictions.
func (c *ServiceConfig) GetForecastYears() int {
	if c.ForecastYears == nil {
		return 10
	}
	return *c.ForecastYears
}
