package config

import "encoding/json"

// ReflectionConfig configures when per-agent memory consolidation runs.
type ReflectionConfig struct {
	// Crisis controls whether a crisis event forces reflection for every
	// actor category (default: true).
	Crisis bool `yaml:"crisis" json:"crisis"`

	// PeriodicInterval fires reflection when the simulated year is a
	// positive multiple of it. Zero disables periodic reflection.
	PeriodicInterval int `yaml:"periodic_interval" json:"periodic_interval"`

	// DecisionTypes lists decision types that force reflection.
	// Empty means the decision trigger never fires.
	DecisionTypes []string `yaml:"decision_types" json:"decision_types"`

	// InstitutionalThreshold is the policy-change magnitude above which
	// institutional actors reflect.
	InstitutionalThreshold float64 `yaml:"institutional_threshold" json:"institutional_threshold"`

	// InstitutionalCategories designates which actor categories the
	// institutional trigger applies to.
	InstitutionalCategories []string `yaml:"institutional_categories" json:"institutional_categories"`

	// Method selects the consolidation strategy (importance, recency).
	Method string `yaml:"method" json:"method"`

	// BatchSize is the number of memories consolidated per pass.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	crisisSet bool
}

// UnmarshalJSON tracks whether the crisis flag was explicitly set so the
// default-true behavior survives partial config files.
func (c *ReflectionConfig) UnmarshalJSON(data []byte) error {
	type alias ReflectionConfig
	aux := struct {
		Crisis *bool `json:"crisis"`
		*alias
	}{
		alias: (*alias)(c),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Crisis != nil {
		c.Crisis = *aux.Crisis
		c.crisisSet = true
	} else {
		c.Crisis = true
	}
	return nil
}

// DefaultReflectionConfig returns sensible defaults for reflection triggers.
func DefaultReflectionConfig() ReflectionConfig {
	return ReflectionConfig{
		Crisis:                  true,
		PeriodicInterval:        5,
		DecisionTypes:           []string{"relocate", "elevate_house"},
		InstitutionalThreshold:  0.3,
		InstitutionalCategories: []string{"government", "insurance"},
		Method:                  "importance",
		BatchSize:               20,
	}
}
