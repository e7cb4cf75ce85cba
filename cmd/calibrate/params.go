package main

import (
	"fmt"
	"strconv"

	"github.com/pthm-cable/tissue/config"
)

// ParamSpec defines a single calibrated module parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Key     string  // Shared parameters key
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all calibrated parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibrated parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Cycle timing
			{Name: "steps_g1", Key: "proliferation/STEPS_G1", Min: 2, Max: 30, Default: 10},
			{Name: "steps_s", Key: "proliferation/STEPS_S", Min: 2, Max: 30, Default: 10},
			{Name: "steps_g2", Key: "proliferation/STEPS_G2", Min: 2, Max: 30, Default: 10},
			{Name: "steps_m", Key: "proliferation/STEPS_M", Min: 1, Max: 15, Default: 5},
			// Growth
			{Name: "cell_growth_rate", Key: "proliferation/CELL_GROWTH_RATE", Min: 0.2, Max: 5, Default: 1.5},
			{Name: "nucleus_growth_rate", Key: "proliferation/NUCLEUS_GROWTH_RATE", Min: 0.1, Max: 2, Default: 0.5},
			// Loss
			{Name: "basal_apoptosis_rate", Key: "proliferation/BASAL_APOPTOSIS_RATE", Min: 0, Max: 0.01, Default: 0},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped values into the shared parameters of cfg.
// Values replace any distribution code configured for the key.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	if cfg.Parameters == nil {
		cfg.Parameters = make(map[string]string, len(pv.Specs))
	}
	for i, v := range pv.Clamp(values) {
		cfg.Parameters[pv.Specs[i].Key] = strconv.FormatFloat(v, 'g', 6, 64)
	}
}

// ExtractFromConfig reads the current values from cfg. Keys holding a
// distribution code or missing from cfg fall back to the spec default.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := pv.DefaultVector()
	for i, spec := range pv.Specs {
		if f, err := strconv.ParseFloat(cfg.Parameters[spec.Key], 64); err == nil {
			v[i] = f
		}
	}
	return v
}

// Header returns the CSV column names for an evaluation row.
func (pv *ParamVector) Header() []string {
	header := []string{"eval", "fitness"}
	for _, spec := range pv.Specs {
		header = append(header, spec.Name)
	}
	return header
}

// Row formats an evaluation for the CSV log.
func (pv *ParamVector) Row(eval int, fitness float64, values []float64) []string {
	row := []string{strconv.Itoa(eval), fmt.Sprintf("%.6f", fitness)}
	for _, v := range values {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	return row
}
