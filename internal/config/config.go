// Package config holds levee's configuration structs with documented
// defaults. Every table the governance core consults (audit policy, drift
// thresholds, sensor bins, reflection triggers) is an injectable value
// loaded here once at startup, never a hidden mutable global.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a simulation run.
type Config struct {
	// Name identifies the experiment; used in audit file names.
	Name string `yaml:"name" json:"name"`

	// RoleTablePath optionally points at a YAML/JSON role table.
	// Empty means the built-in flood-adaptation table.
	RoleTablePath string `yaml:"role_table_path" json:"role_table_path"`

	Audit      AuditConfig      `yaml:"audit" json:"audit"`
	Reflection ReflectionConfig `yaml:"reflection" json:"reflection"`
	Drift      DriftConfig      `yaml:"drift" json:"drift"`
	Monitor    MonitorConfig    `yaml:"monitor" json:"monitor"`
	Governance GovernanceConfig `yaml:"governance" json:"governance"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// GovernanceConfig bounds the decision loop.
type GovernanceConfig struct {
	// MaxRetries is the number of corrective re-prompts before a proposal
	// is rejected with the fallback skill. The retry bound is the only
	// circuit breaker in the loop.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// FallbackSkill substitutes for the proposal on retry exhaustion.
	FallbackSkill string `yaml:"fallback_skill" json:"fallback_skill"`
}

// LoggingConfig controls the category file loggers.
type LoggingConfig struct {
	// Debug enables category log files; false is a silent no-op.
	Debug bool `yaml:"debug" json:"debug"`

	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Name:       "levee-run",
		Audit:      DefaultAuditConfig(),
		Reflection: DefaultReflectionConfig(),
		Drift:      DefaultDriftConfig(),
		Monitor:    DefaultMonitorConfig(),
		Governance: GovernanceConfig{MaxRetries: 3, FallbackSkill: "do_nothing"},
		Logging:    LoggingConfig{Debug: false, Level: "info"},
	}
}

// Load reads a config file (YAML or JSON by extension), layered over
// defaults. A missing path returns defaults; a malformed file is a
// construction-time error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks construction-time invariants. Per-decision failures are
// data, but a config that cannot express a sane run is an error here.
func (c Config) Validate() error {
	if err := c.Audit.Validate(); err != nil {
		return err
	}
	if c.Governance.MaxRetries < 0 {
		return fmt.Errorf("governance.max_retries must be >= 0, got %d", c.Governance.MaxRetries)
	}
	if c.Governance.FallbackSkill == "" {
		return fmt.Errorf("governance.fallback_skill must not be empty")
	}
	for _, s := range c.Monitor.Sensors {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
