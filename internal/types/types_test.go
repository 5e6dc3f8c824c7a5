package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want Severity
	}{
		{"ERROR", SeverityError},
		{"error", SeverityError},
		{"  Error ", SeverityError},
		{"Severity.ERROR", SeverityError},
		{"ValidationSeverity.ERROR", SeverityError},
		{"FATAL", SeverityError},
		{"WARNING", SeverityWarning},
		{"Severity.WARNING", SeverityWarning},
		{"warn", SeverityWarning},
		{"", SeverityWarning},
		{"banana", SeverityWarning},
	}
	for _, tc := range cases {
		if got := NormalizeSeverity(tc.raw); got != tc.want {
			t.Errorf("NormalizeSeverity(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestHasErrorAndCounts(t *testing.T) {
	issues := []ValidationIssue{
		{Level: SeverityWarning, Message: "a"},
		{Level: SeverityError, Message: "b"},
		{Level: SeverityWarning, Message: "c"},
	}
	if !HasError(issues) {
		t.Fatal("expected HasError true")
	}
	errs, warns := CountBySeverity(issues)
	if errs != 1 || warns != 2 {
		t.Fatalf("CountBySeverity = (%d, %d), want (1, 2)", errs, warns)
	}

	if HasError(nil) {
		t.Fatal("empty issue list must not report errors")
	}
}

// The trace JSON field names are an external contract consumed by post-hoc
// tooling; renaming any of them is a breaking change.
func TestTraceJSONContract(t *testing.T) {
	trace := Trace{
		Timestamp:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Step:          3,
		ActorID:       "h1",
		ActorCategory: "household",
		Skill:         "buy_insurance",
		Decision:      "buy_insurance",
		Outcome:       OutcomeApproved,
		RetryCount:    1,
		Validated:     true,
		Issues:        []ValidationIssue{},
	}
	data, err := json.Marshal(trace)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{
		`"timestamp"`, `"agent_type"`, `"validated"`, `"validation_issues"`,
		`"decision"`, `"skill"`, `"outcome"`, `"retry_count"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("trace JSON missing required field %s: %s", field, data)
		}
	}
}

func TestTraceToFact(t *testing.T) {
	trace := Trace{
		Timestamp:     time.Unix(1000, 0),
		ActorID:       "h1",
		ActorCategory: "household",
		Skill:         "relocate",
		Outcome:       OutcomeRejected,
		RetryCount:    3,
	}
	fact := trace.ToFact()
	if fact.Predicate != "decision_trace" {
		t.Fatalf("predicate = %q", fact.Predicate)
	}
	if _, err := fact.ToAtom(); err != nil {
		t.Fatalf("trace fact does not form a valid atom: %v", err)
	}
	s := fact.String()
	if !strings.Contains(s, "/household") || !strings.Contains(s, "/rejected") {
		t.Errorf("fact string missing name constants: %s", s)
	}
	if !strings.HasSuffix(s, ").") {
		t.Errorf("fact string not terminated: %s", s)
	}
}

func TestFactStringQuoting(t *testing.T) {
	f := Fact{Predicate: "p", Args: []interface{}{"plain text", MangleAtom("/tag"), 7, true}}
	s := f.String()
	if !strings.Contains(s, `"plain text"`) {
		t.Errorf("string arg not quoted: %s", s)
	}
	if !strings.Contains(s, "/tag") || !strings.Contains(s, "/true") {
		t.Errorf("atoms not rendered: %s", s)
	}
}
