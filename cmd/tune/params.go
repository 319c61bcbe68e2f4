package main

import (
	"math"

	"github.com/pthm-cable/sightline/config"
)

// ParamSpec defines a single tunable parameter and where it lives in the config.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

func (s ParamSpec) clamp(v float64) float64    { return min(max(v, s.Min), s.Max) }
func (s ParamSpec) toUnit(v float64) float64   { return (v - s.Min) / (s.Max - s.Min) }
func (s ParamSpec) fromUnit(u float64) float64 { return s.Min + u*(s.Max-s.Min) }

// ParamVector holds the set of tunable visibility parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the sweep parameters CMA-ES searches over.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{
				Name: "base_samples", Path: "visibility.base_samples", Min: 8, Max: 256, Default: 64,
				get: func(c *config.Config) float64 { return float64(c.Visibility.BaseSamples) },
				set: func(c *config.Config, v float64) { c.Visibility.BaseSamples = int(math.Round(v)) },
			},
			{
				Name: "corner_distance", Path: "visibility.corner_distance", Min: 1, Max: 64, Default: 16,
				get: func(c *config.Config) float64 { return c.Visibility.CornerDistance },
				set: func(c *config.Config, v float64) { c.Visibility.CornerDistance = v },
			},
			{
				Name: "angle_epsilon_deg", Path: "visibility.angle_epsilon_deg", Min: 0.01, Max: 2, Default: 0.25,
				get: func(c *config.Config) float64 { return c.Visibility.AngleEpsilonDeg },
				set: func(c *config.Config, v float64) {
					c.Visibility.AngleEpsilonDeg = v
					c.Derived.AngleEpsilon = v * math.Pi / 180
				},
			},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

func (pv *ParamVector) each(in []float64, fn func(ParamSpec, float64) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		var v float64
		if in != nil {
			v = in[i]
		}
		out[i] = fn(spec, v)
	}
	return out
}

// DefaultVector returns the default parameter values.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.each(nil, func(s ParamSpec, _ float64) float64 { return s.Default })
}

// Normalize maps raw values onto [0,1] per parameter.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.each(raw, ParamSpec.toUnit)
}

// Denormalize maps [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(unit []float64) []float64 {
	return pv.each(unit, ParamSpec.fromUnit)
}

// Clamp bounds every value to its parameter range.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.each(v, ParamSpec.clamp)
}

// ApplyToConfig writes clamped values into cfg, keeping derived values and
// max_samples consistent.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	cfg.Visibility.MaxSamples = max(cfg.Visibility.MaxSamples, cfg.Visibility.BaseSamples)
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return pv.each(nil, func(s ParamSpec, _ float64) float64 { return s.get(cfg) })
}
