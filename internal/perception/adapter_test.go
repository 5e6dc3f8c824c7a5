package perception

import (
	"strings"
	"testing"

	"levee/internal/types"
)

var householdSkills = []string{"do_nothing", "elevate_house", "buy_insurance", "relocate"}

func newTestAdapter() *Adapter {
	return NewAdapter(householdSkills, "do_nothing")
}

func TestParseSkillLine(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"skill label", "Skill: buy_insurance", "buy_insurance"},
		{"decision label", "Decision: relocate", "relocate"},
		{"case and quotes", `skill: "Elevate_House"`, "elevate_house"},
		{"skill in prose", "Skill: I think I will buy_insurance this year", "buy_insurance"},
		{"spaces to underscores", "Skill: elevate house", "elevate_house"},
		{"invalid skill falls back", "Skill: win_lottery", "do_nothing"},
		{"empty input falls back", "", "do_nothing"},
		{"prose only falls back", "The weather is nice today.", "do_nothing"},
	}
	a := newTestAdapter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := a.ParseOutput(tc.raw, ParseContext{ActorID: "h1"})
			if got.Skill != tc.want {
				t.Errorf("ParseOutput(%q).Skill = %q, want %q", tc.raw, got.Skill, tc.want)
			}
		})
	}
}

func TestParsePMTReasoning(t *testing.T) {
	raw := "Threat appraisal: the levee will certainly fail\nCoping appraisal: we cannot afford elevation\nSkill: buy_insurance"
	p := newTestAdapter().ParseOutput(raw, ParseContext{ActorID: "h1"})

	if p.Reasoning["threat_appraisal"] != "the levee will certainly fail" {
		t.Errorf("threat appraisal = %q", p.Reasoning["threat_appraisal"])
	}
	if p.Reasoning["coping_appraisal"] != "we cannot afford elevation" {
		t.Errorf("coping appraisal = %q", p.Reasoning["coping_appraisal"])
	}
	if p.Skill != "buy_insurance" {
		t.Errorf("skill = %q", p.Skill)
	}
}

func TestParseLegacyFinalDecision(t *testing.T) {
	a := newTestAdapter()

	// Substring match wins over digit interpretation.
	p := a.ParseOutput("Final Decision: I choose to relocate now", ParseContext{ActorID: "h1"})
	if p.Skill != "relocate" {
		t.Errorf("substring branch: skill = %q", p.Skill)
	}

	// Single digit through the not-elevated table.
	p = a.ParseOutput("Final Decision: 2", ParseContext{ActorID: "h1"})
	if p.Skill != "buy_insurance" {
		t.Errorf("digit, not elevated: skill = %q, want buy_insurance", p.Skill)
	}

	// Same digit through the elevated table shifts.
	p = a.ParseOutput("Final Decision: 2", ParseContext{ActorID: "h1", Elevated: true})
	if p.Skill != "relocate" {
		t.Errorf("digit, elevated: skill = %q, want relocate", p.Skill)
	}

	// Out-of-range digit degrades to the default.
	p = a.ParseOutput("Final Decision: 9", ParseContext{ActorID: "h1"})
	if p.Skill != "do_nothing" {
		t.Errorf("bad digit: skill = %q, want do_nothing", p.Skill)
	}
}

func TestPreprocessorStripsReasoningBlocks(t *testing.T) {
	raw := "<think>Skill: relocate is tempting but wrong</think>\nSkill: do_nothing"
	p := newTestAdapter().ParseOutput(raw, ParseContext{ActorID: "h1"})
	if p.Skill != "do_nothing" {
		t.Errorf("skill = %q, chain-of-thought must not leak into parsing", p.Skill)
	}
	if p.RawOutput != raw {
		t.Error("RawOutput must preserve the original text")
	}
}

func TestCustomPreprocessor(t *testing.T) {
	strip := func(s string) string { return strings.ReplaceAll(s, "###", "") }
	a := NewAdapter(householdSkills, "do_nothing", strip)
	p := a.ParseOutput("###Skill: relocate###", ParseContext{ActorID: "h1"})
	if p.Skill != "relocate" {
		t.Errorf("skill = %q", p.Skill)
	}
}

func TestParseConfidence(t *testing.T) {
	p := newTestAdapter().ParseOutput("Skill: relocate\nConfidence: 0.85", ParseContext{ActorID: "h1"})
	if p.Confidence != 0.85 {
		t.Errorf("confidence = %v", p.Confidence)
	}
}

func TestFormatRetryPrompt(t *testing.T) {
	original := "Choose your adaptation."
	issues := []types.ValidationIssue{
		{Level: types.SeverityError, Message: "skill build_levee not permitted for household"},
		{Level: types.SeverityWarning, Message: "confidence missing"},
	}
	out := FormatRetryPrompt(original, issues)

	if !strings.HasSuffix(out, original) {
		t.Error("original prompt must come last")
	}
	if !strings.Contains(out, "1. [ERROR] skill build_levee not permitted for household") {
		t.Errorf("missing numbered error line:\n%s", out)
	}
	if !strings.Contains(out, "2. [WARNING] confidence missing") {
		t.Errorf("missing numbered warning line:\n%s", out)
	}

	if got := FormatRetryPrompt(original, nil); got != original {
		t.Error("no issues must return the prompt unchanged")
	}
}
