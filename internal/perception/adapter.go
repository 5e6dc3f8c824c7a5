// Package perception turns raw generation output into structured skill
// proposals. Parsing never fails: every malformed output degrades to the
// configured default skill so the decision pipeline stays total.
package perception

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"levee/internal/logging"
	"levee/internal/types"
)

// Preprocessor rewrites raw output before scanning, e.g. to strip
// model-specific formatting artifacts. Preprocessors run in order.
type Preprocessor func(string) string

// ParseContext carries the per-decision facts the adapter needs.
type ParseContext struct {
	ActorID string

	// Elevated selects the legacy numeric-code table. An already-elevated
	// household has a shorter action menu, so the digit mapping shifts.
	Elevated bool
}

// Legacy numeric-code tables. Older prompt templates asked for a single
// digit; the mapping depends on whether the house is already elevated.
var (
	legacyCodes = map[string]string{
		"0": "do_nothing",
		"1": "elevate_house",
		"2": "buy_insurance",
		"3": "relocate",
	}
	legacyCodesElevated = map[string]string{
		"0": "do_nothing",
		"1": "buy_insurance",
		"2": "relocate",
	}
)

var (
	skillLineRe      = regexp.MustCompile(`(?im)^\s*(?:skill|decision)\s*:\s*(.+)$`)
	threatLineRe     = regexp.MustCompile(`(?im)^\s*threat appraisal\s*:\s*(.+)$`)
	copingLineRe     = regexp.MustCompile(`(?im)^\s*coping appraisal\s*:\s*(.+)$`)
	finalDecisionRe  = regexp.MustCompile(`(?im)^\s*final decision\s*:\s*(.+)$`)
	confidenceLineRe = regexp.MustCompile(`(?im)^\s*confidence\s*:\s*([0-9]*\.?[0-9]+)`)
	thinkBlockRe     = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
)

// StripReasoningBlocks removes chain-of-thought delimiter blocks. It is the
// default preprocessor; models that emit other artifacts register their own.
func StripReasoningBlocks(raw string) string {
	return thinkBlockRe.ReplaceAllString(raw, "")
}

// Adapter parses model output into SkillProposals for one actor category.
type Adapter struct {
	ordered       []string
	validSkills   map[string]bool
	defaultSkill  string
	preprocessors []Preprocessor
}

// NewAdapter builds an adapter that accepts the given skill names. The
// default skill is returned whenever nothing can be recovered. Substring
// matching honors declaration order, so list more specific names first.
func NewAdapter(validSkills []string, defaultSkill string, pre ...Preprocessor) *Adapter {
	set := make(map[string]bool, len(validSkills))
	for _, s := range validSkills {
		set[s] = true
	}
	if len(pre) == 0 {
		pre = []Preprocessor{StripReasoningBlocks}
	}
	return &Adapter{
		ordered:       append([]string(nil), validSkills...),
		validSkills:   set,
		defaultSkill:  defaultSkill,
		preprocessors: pre,
	}
}

// ParseOutput extracts a skill proposal from raw model output. It never
// returns an error; unrecognized output yields the default skill.
//
// Recognition order: an explicit Skill:/Decision: line naming a valid
// skill, then a legacy Final Decision: line (skill-name substring first,
// then a single digit through the legacy code tables), then the default.
// PMT appraisal lines are captured verbatim into the proposal's reasoning
// regardless of which branch produced the skill.
func (a *Adapter) ParseOutput(raw string, ctx ParseContext) types.SkillProposal {
	text := raw
	for _, p := range a.preprocessors {
		text = p(text)
	}

	proposal := types.SkillProposal{
		Skill:     a.defaultSkill,
		ActorID:   ctx.ActorID,
		RawOutput: raw,
		Reasoning: map[string]string{},
	}

	if m := threatLineRe.FindStringSubmatch(text); m != nil {
		proposal.Reasoning["threat_appraisal"] = strings.TrimSpace(m[1])
	}
	if m := copingLineRe.FindStringSubmatch(text); m != nil {
		proposal.Reasoning["coping_appraisal"] = strings.TrimSpace(m[1])
	}
	if m := confidenceLineRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			proposal.Confidence = v
		}
	}

	if skill, ok := a.parseSkillLine(text); ok {
		proposal.Skill = skill
		return proposal
	}
	if skill, ok := a.parseLegacyDecision(text, ctx); ok {
		proposal.Skill = skill
		return proposal
	}

	logging.PerceptionDebug("no skill recovered for %s, defaulting to %s", ctx.ActorID, a.defaultSkill)
	return proposal
}

func (a *Adapter) parseSkillLine(text string) (string, bool) {
	m := skillLineRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	candidate := normalizeSkill(m[1])
	if a.validSkills[candidate] {
		return candidate, true
	}
	// The labeled line may wrap the skill in prose ("Skill: I will
	// buy_insurance this year"). Fall back to a substring scan.
	if skill, ok := a.matchSubstring(m[1]); ok {
		return skill, true
	}
	return "", false
}

func (a *Adapter) parseLegacyDecision(text string, ctx ParseContext) (string, bool) {
	m := finalDecisionRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	value := strings.TrimSpace(m[1])

	if skill, ok := a.matchSubstring(value); ok {
		return skill, true
	}

	digit := strings.Trim(value, ".)] ")
	if len(digit) != 1 {
		return "", false
	}
	table := legacyCodes
	if ctx.Elevated {
		table = legacyCodesElevated
	}
	skill, ok := table[digit]
	if !ok || !a.validSkills[skill] {
		return "", false
	}
	return skill, true
}

// matchSubstring scans prose for any valid skill name.
func (a *Adapter) matchSubstring(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, skill := range a.ordered {
		if strings.Contains(lower, skill) {
			return skill, true
		}
	}
	return "", false
}

func normalizeSkill(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"'.`)
	return strings.ReplaceAll(s, " ", "_")
}

// FormatRetryPrompt prepends a numbered list of validation errors to the
// original prompt so the next attempt can correct them.
func FormatRetryPrompt(original string, issues []types.ValidationIssue) string {
	if len(issues) == 0 {
		return original
	}
	var b strings.Builder
	b.WriteString("Your previous response had the following problems:\n")
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, issue.Level, issue.Message)
	}
	b.WriteString("Please reconsider and respond again.\n\n")
	b.WriteString(original)
	return b.String()
}
