// Package config loads tuning parameters for the field engine and the
// homogenization solver from JSON files.
//
// All fields are pointers so a partial file only overrides what it names;
// the canonical defaults live in config/tuning.defaults.json and are the
// single source of truth for default tuning values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
type TuningConfig struct {
	// Build-risk kernel params. The centre-layer index and its weighting
	// factor are empirically chosen constants carried over from the
	// calibrated fabrication model; they are configurable here pending
	// domain-expert review rather than hard-coded.
	RiskKernelSize   *int     `json:"risk_kernel_size,omitempty"`   // odd kernel edge length in voxels
	RiskLayerIndex   *int     `json:"risk_layer_index,omitempty"`   // 1-based current-layer index, default ceil(n/2)
	RiskLayerFactor  *float64 `json:"risk_layer_factor,omitempty"`  // current layer down-weighting
	RiskSigmaVoxels  *float64 `json:"risk_sigma_voxels,omitempty"`  // horizontal Gaussian footprint
	SmoothSigmaVoxel *float64 `json:"smooth_sigma_voxel,omitempty"` // orientation pre-smoothing

	// Homogenization solver params.
	PCGTolerance *float64 `json:"pcg_tolerance,omitempty"` // relative residual target
	PCGMaxIter   *int     `json:"pcg_max_iter,omitempty"`
}

// Helper functions to create pointers.
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// Defaults returns the built-in tuning values, used when no defaults file
// is present.
func Defaults() *TuningConfig {
	return &TuningConfig{
		RiskKernelSize:   ptrInt(5),
		RiskLayerFactor:  ptrFloat64(0.2),
		RiskSigmaVoxels:  ptrFloat64(1.0),
		SmoothSigmaVoxel: ptrFloat64(0.5),
		PCGTolerance:     ptrFloat64(1e-6),
		PCGMaxIter:       ptrInt(2000),
	}
}

// LoadTuningConfig reads a tuning file and merges it over the built-in
// defaults. A missing file is not an error: the defaults are returned.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var file TuningConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Merge(&file)
	return cfg, nil
}

// Merge copies every non-nil field of other over c.
func (c *TuningConfig) Merge(other *TuningConfig) {
	if other == nil {
		return
	}
	if other.RiskKernelSize != nil {
		c.RiskKernelSize = other.RiskKernelSize
	}
	if other.RiskLayerIndex != nil {
		c.RiskLayerIndex = other.RiskLayerIndex
	}
	if other.RiskLayerFactor != nil {
		c.RiskLayerFactor = other.RiskLayerFactor
	}
	if other.RiskSigmaVoxels != nil {
		c.RiskSigmaVoxels = other.RiskSigmaVoxels
	}
	if other.SmoothSigmaVoxel != nil {
		c.SmoothSigmaVoxel = other.SmoothSigmaVoxel
	}
	if other.PCGTolerance != nil {
		c.PCGTolerance = other.PCGTolerance
	}
	if other.PCGMaxIter != nil {
		c.PCGMaxIter = other.PCGMaxIter
	}
}
