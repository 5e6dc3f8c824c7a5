package config

// DriftConfig configures population- and individual-level drift detection.
type DriftConfig struct {
	// EntropyThreshold alerts when normalized decision entropy for a
	// time step falls below it (bits).
	EntropyThreshold float64 `yaml:"entropy_threshold" json:"entropy_threshold"`

	// DominanceRatio alerts when the most frequent decision's share of
	// the population exceeds it.
	DominanceRatio float64 `yaml:"dominance_ratio" json:"dominance_ratio"`

	// WindowSize bounds the per-actor sliding decision window.
	WindowSize int `yaml:"window_size" json:"window_size"`

	// SimilarityThreshold flags an actor as stagnant when the Jaccard
	// similarity between the older and newer halves of its window
	// reaches it.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`

	// MinVariety is the distinct-decision count at or below which a
	// high-similarity window counts as stagnation.
	MinVariety int `yaml:"min_variety" json:"min_variety"`
}

// DefaultDriftConfig returns thresholds tuned for ~100-actor populations.
func DefaultDriftConfig() DriftConfig {
	return DriftConfig{
		EntropyThreshold:    0.5,
		DominanceRatio:      0.8,
		WindowSize:          10,
		SimilarityThreshold: 0.9,
		MinVariety:          2,
	}
}
