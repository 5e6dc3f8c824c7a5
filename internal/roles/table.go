// Package roles enforces per-category permissions for simulation actors.
// Every check fails closed: a category the table does not name is denied
// everything, never granted by default.
package roles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec defines what one actor category may do, see and change.
type Spec struct {
	// AllowedSkills is the closed set of skill names the category may
	// propose.
	AllowedSkills []string `yaml:"allowed_skills" json:"allowed_skills"`

	// CanReadState lists the observable state scopes.
	CanReadState []string `yaml:"can_read_state" json:"can_read_state"`

	// CanModify lists the state fields the category's approved skills may
	// mutate.
	CanModify []string `yaml:"can_modify" json:"can_modify"`

	// ArtifactType tags the audit artifacts this category produces.
	ArtifactType string `yaml:"artifact_type" json:"artifact_type"`
}

// Allows reports whether skill is in the category's allowed set.
func (s Spec) Allows(skill string) bool {
	for _, a := range s.AllowedSkills {
		if a == skill {
			return true
		}
	}
	return false
}

// Table maps actor category to its permission spec.
type Table map[string]Spec

// Validate rejects tables that would silently deny everything at runtime.
// Construction-time is the only place a bad table may surface as an error.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("role table is empty")
	}
	for category, spec := range t {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("role table has an unnamed category")
		}
		if len(spec.AllowedSkills) == 0 {
			return fmt.Errorf("category %s has no allowed skills", category)
		}
		for _, skill := range spec.AllowedSkills {
			if strings.TrimSpace(skill) == "" {
				return fmt.Errorf("category %s lists an empty skill name", category)
			}
		}
	}
	return nil
}

// DefaultTable returns the flood-domain role table. Domain owners override
// it with LoadTable; the defaults document the expected shape.
func DefaultTable() Table {
	return Table{
		"household": {
			AllowedSkills: []string{"do_nothing", "elevate_house", "buy_insurance", "relocate", "floodproof_house"},
			CanReadState:  []string{"own_state", "flood", "insurance_offers", "neighborhood"},
			CanModify:     []string{"savings", "elevated", "insured", "location", "floodproofed"},
			ArtifactType:  "household_decision",
		},
		"insurance": {
			AllowedSkills: []string{"do_nothing", "set_premium", "adjust_coverage", "deny_coverage"},
			CanReadState:  []string{"own_state", "flood", "claims_history", "market"},
			CanModify:     []string{"premium_rate", "coverage_terms", "reserves"},
			ArtifactType:  "policy_decision",
		},
		"government": {
			AllowedSkills: []string{"do_nothing", "build_levee", "subsidize_insurance", "update_zoning", "issue_warning"},
			CanReadState:  []string{"own_state", "flood", "population", "budget", "infrastructure"},
			CanModify:     []string{"budget", "levee_height", "zoning", "subsidy_rate"},
			ArtifactType:  "policy_decision",
		},
		"irrigator": {
			AllowedSkills: []string{"do_nothing", "irrigate", "fallow", "invest_efficiency", "trade_water_rights"},
			CanReadState:  []string{"own_state", "water_supply", "crop_prices", "allocation"},
			CanModify:     []string{"water_use", "crop_choice", "efficiency", "water_rights"},
			ArtifactType:  "irrigation_decision",
		},
	}
}

// LoadTable reads a role table from a YAML or JSON file. The format is
// picked by extension; .json parses as JSON, everything else as YAML.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role table %s: %w", path, err)
	}

	var t Table
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &t)
	} else {
		err = yaml.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("parse role table %s: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid role table %s: %w", path, err)
	}
	return t, nil
}
