package config

import "fmt"

// BinConfig is one quantization bin: values at or below UpperBound map to
// Label. Bins are evaluated in declared order; the first match wins.
type BinConfig struct {
	Label      string  `yaml:"label" json:"label"`
	UpperBound float64 `yaml:"upper_bound" json:"upper_bound"`
}

// SensorConfig names one observation path and its quantization bins.
type SensorConfig struct {
	// Name tags the sensor's symbols in the fused signature.
	Name string `yaml:"name" json:"name"`

	// Path is the dotted path into the nested world-state mapping
	// (e.g. "flood.depth"). Missing or non-numeric values coerce to 0.
	Path string `yaml:"path" json:"path"`

	Bins []BinConfig `yaml:"bins" json:"bins"`
}

// Validate checks that a sensor can quantize at all.
func (s SensorConfig) Validate() error {
	if s.Name == "" || s.Path == "" {
		return fmt.Errorf("sensor requires name and path, got name=%q path=%q", s.Name, s.Path)
	}
	if len(s.Bins) == 0 {
		return fmt.Errorf("sensor %s has no bins", s.Name)
	}
	for _, b := range s.Bins {
		if b.Label == "" {
			return fmt.Errorf("sensor %s has a bin with no label", s.Name)
		}
	}
	return nil
}

// SurpriseStrategy selects the novelty computation. The two strategies have
// different first-observation behavior and are deliberately kept separate.
type SurpriseStrategy string

const (
	// SurpriseFrequency is 1 - priorCount/totalBefore; the first
	// observation of any signature scores exactly 1.0.
	SurpriseFrequency SurpriseStrategy = "frequency"

	// SurpriseLaplace is 1 - (priorCount+1)/(totalBefore+vocab); smoothed,
	// so the first observation scores below 1.0 depending on vocab size.
	SurpriseLaplace SurpriseStrategy = "laplace"
)

// MonitorConfig configures the symbolic context monitor.
type MonitorConfig struct {
	// ArousalThreshold selects the deliberative processing mode when
	// surprise exceeds it.
	ArousalThreshold float64 `yaml:"arousal_threshold" json:"arousal_threshold"`

	// Strategy is frequency (default) or laplace.
	Strategy SurpriseStrategy `yaml:"strategy" json:"strategy"`

	// VocabSize is the assumed signature vocabulary for the laplace
	// strategy; ignored by frequency.
	VocabSize int `yaml:"vocab_size" json:"vocab_size"`

	Sensors []SensorConfig `yaml:"sensors" json:"sensors"`
}

// DefaultMonitorConfig returns the flood-domain sensor set.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ArousalThreshold: 0.7,
		Strategy:         SurpriseFrequency,
		VocabSize:        64,
		Sensors: []SensorConfig{
			{
				Name: "flood_depth",
				Path: "flood.depth",
				Bins: []BinConfig{
					{Label: "dry", UpperBound: 0.0},
					{Label: "minor", UpperBound: 0.5},
					{Label: "major", UpperBound: 2.0},
					{Label: "extreme", UpperBound: 10.0},
				},
			},
			{
				Name: "savings",
				Path: "household.savings",
				Bins: []BinConfig{
					{Label: "broke", UpperBound: 1000},
					{Label: "tight", UpperBound: 10000},
					{Label: "stable", UpperBound: 100000},
					{Label: "wealthy", UpperBound: 1e9},
				},
			},
			{
				Name: "premium",
				Path: "insurance.premium_rate",
				Bins: []BinConfig{
					{Label: "cheap", UpperBound: 0.02},
					{Label: "fair", UpperBound: 0.05},
					{Label: "steep", UpperBound: 0.15},
					{Label: "prohibitive", UpperBound: 1.0},
				},
			},
		},
	}
}
