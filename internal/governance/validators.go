package governance

import (
	"fmt"

	"levee/internal/audit"
	"levee/internal/roles"
	"levee/internal/types"
)

// ReasoningValidator flags proposals whose appraisal constructs are
// missing. Missing reasoning is a WARNING: the decision still stands, but
// post-hoc construct classification will have nothing to code.
type ReasoningValidator struct{}

func (ReasoningValidator) Name() string { return "reasoning_present" }

func (ReasoningValidator) Validate(p types.SkillProposal, category string) []audit.RawIssue {
	var issues []audit.RawIssue
	for _, construct := range []string{"threat_appraisal", "coping_appraisal"} {
		if p.Reasoning[construct] == "" {
			issues = append(issues, audit.RawIssue{
				Level:   string(types.SeverityWarning),
				Tier:    "reasoning",
				Rule:    "reasoning_present",
				Message: fmt.Sprintf("proposal from %s lacks %s", p.ActorID, construct),
			})
		}
	}
	return issues
}

// ConfidenceValidator warns when a proposal's self-reported confidence
// falls below the floor. Zero confidence usually means the line was absent.
type ConfidenceValidator struct {
	Floor float64
}

func (ConfidenceValidator) Name() string { return "confidence_floor" }

func (v ConfidenceValidator) Validate(p types.SkillProposal, category string) []audit.RawIssue {
	if p.Confidence >= v.Floor {
		return nil
	}
	return []audit.RawIssue{{
		Level:   string(types.SeverityWarning),
		Tier:    "reasoning",
		Rule:    "confidence_floor",
		Message: fmt.Sprintf("confidence %.2f below floor %.2f", p.Confidence, v.Floor),
	}}
}

// MutationValidator checks that every state field a skill would mutate is
// within the actor category's mutable set. Skills missing from the effect
// map are treated as mutation-free.
type MutationValidator struct {
	Enforcer *roles.Enforcer

	// Effects maps skill name to the state fields it writes.
	Effects map[string][]string
}

// DefaultSkillEffects covers the flood-domain skill set.
func DefaultSkillEffects() map[string][]string {
	return map[string][]string{
		"elevate_house":       {"savings", "elevated"},
		"buy_insurance":       {"savings", "insured"},
		"relocate":            {"savings", "location"},
		"floodproof_house":    {"savings", "floodproofed"},
		"set_premium":         {"premium_rate"},
		"adjust_coverage":     {"coverage_terms"},
		"deny_coverage":       {"coverage_terms"},
		"build_levee":         {"budget", "levee_height"},
		"subsidize_insurance": {"budget", "subsidy_rate"},
		"update_zoning":       {"zoning"},
		"irrigate":            {"water_use"},
		"fallow":              {"crop_choice", "water_use"},
		"invest_efficiency":   {"efficiency", "water_use"},
		"trade_water_rights":  {"water_rights"},
	}
}

func (MutationValidator) Name() string { return "mutation_scope" }

func (v MutationValidator) Validate(p types.SkillProposal, category string) []audit.RawIssue {
	var issues []audit.RawIssue
	for _, field := range v.Effects[p.Skill] {
		perm := v.Enforcer.CheckStateMutation(category, field)
		if !perm.Allowed {
			issues = append(issues, audit.RawIssue{
				Level:   string(types.SeverityError),
				Tier:    "role",
				Rule:    "mutation_scope",
				Message: perm.Reason,
			})
		}
	}
	return issues
}
