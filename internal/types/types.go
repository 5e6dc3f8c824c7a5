// Package types provides shared type definitions used across levee packages.
// This package exists to break import cycles between governance, perception,
// and audit. Types here are foundational data structures with no complex
// dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity classifies a validation issue. ERROR blocks a decision,
// WARNING merely flags it.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// NormalizeSeverity maps the severity representations that show up in raw
// validation results onto the canonical values. Upstream validators emit
// plain strings ("error", "ERROR") as well as stringified enum members
// ("Severity.ERROR", "ValidationSeverity.WARNING"); anything unrecognized
// normalizes to WARNING so a malformed result never silently blocks.
func NormalizeSeverity(raw string) Severity {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		s = s[idx+1:]
	}
	switch s {
	case "ERROR", "ERR", "FATAL":
		return SeverityError
	default:
		return SeverityWarning
	}
}

// =============================================================================
// VALIDATION ISSUES
// =============================================================================

// ValidationIssue describes one finding from a governance rule.
type ValidationIssue struct {
	Level   Severity `json:"level"`
	Tier    string   `json:"tier"`
	Rule    string   `json:"rule"`
	Message string   `json:"message"`
}

// HasError reports whether at least one issue is ERROR-level.
func HasError(issues []ValidationIssue) bool {
	for _, is := range issues {
		if is.Level == SeverityError {
			return true
		}
	}
	return false
}

// CountBySeverity returns the number of ERROR and WARNING issues.
func CountBySeverity(issues []ValidationIssue) (errors, warnings int) {
	for _, is := range issues {
		switch is.Level {
		case SeverityError:
			errors++
		default:
			warnings++
		}
	}
	return errors, warnings
}

// =============================================================================
// SKILL PROPOSAL
// =============================================================================

// SkillProposal is the structured form of one generated action proposal.
// It is constructed once per decision attempt and not mutated afterwards.
type SkillProposal struct {
	Skill      string            `json:"skill"`
	ActorID    string            `json:"actor_id"`
	Reasoning  map[string]string `json:"reasoning,omitempty"`
	Confidence float64           `json:"confidence"`
	RawOutput  string            `json:"raw_output"`
}

// PermissionResult is the typed outcome of a role-table check.
// Denials carry a reason; they are ordinary data, never errors.
type PermissionResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns a positive permission result.
func Allow() PermissionResult { return PermissionResult{Allowed: true} }

// Deny returns a negative permission result with the given reason.
func Deny(reason string) PermissionResult {
	return PermissionResult{Allowed: false, Reason: reason}
}

// =============================================================================
// DECISION OUTCOME & TRACE
// =============================================================================

// Outcome is the terminal state of one governed decision.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
)

// Trace is the append-only record of one finalized decision. The JSON field
// names are a stable external contract: post-hoc classifiers, null-model
// generators and plotting scripts parse these records directly.
type Trace struct {
	Timestamp     time.Time         `json:"timestamp"`
	RunID         string            `json:"run_id,omitempty"`
	TraceID       string            `json:"trace_id,omitempty"`
	Step          int               `json:"step"`
	ActorID       string            `json:"actor_id"`
	ActorCategory string            `json:"agent_type"`
	Skill         string            `json:"skill"`
	Decision      string            `json:"decision"`
	Outcome       Outcome           `json:"outcome"`
	RetryCount    int               `json:"retry_count"`
	Validated     bool              `json:"validated"`
	Issues        []ValidationIssue `json:"validation_issues"`
	Reasoning     map[string]string `json:"reasoning,omitempty"`
	Prompt        string            `json:"prompt,omitempty"`
	RawOutput     string            `json:"raw_output,omitempty"`
}

// ToFact converts the trace to a Mangle fact for the per-run fact log.
// Schema: decision_trace(Timestamp, Category, ActorID, Skill, Outcome, Retries, Validated).
func (t Trace) ToFact() Fact {
	return Fact{
		Predicate: "decision_trace",
		Args: []interface{}{
			t.Timestamp.UnixMilli(),
			MangleAtom("/" + t.ActorCategory),
			t.ActorID,
			t.Skill,
			MangleAtom("/" + strings.ToLower(string(t.Outcome))),
			t.RetryCount,
			t.Validated,
		},
	}
}
