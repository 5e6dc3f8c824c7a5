package perception

import (
	"regexp"
	"strings"

	"levee/internal/logging"
)

// Five-point construct levels used by PMT-style appraisal coding.
const (
	LevelVeryHigh = "VH"
	LevelHigh     = "H"
	LevelMedium   = "M"
	LevelLow      = "L"
	LevelVeryLow  = "VL"
)

// Keywords holds the substring dictionaries for one construct. The high
// and low sets drive tier-2 classification; everything else is medium.
type Keywords struct {
	High []string
	Low  []string
}

// DefaultThreatKeywords covers threat-appraisal language in flood-domain
// reasoning text.
func DefaultThreatKeywords() Keywords {
	return Keywords{
		High: []string{
			"severe flood", "major flood", "high risk", "very likely",
			"dangerous", "threat is high", "serious damage", "risk of flood",
			"catastrophic", "devastating", "extreme",
		},
		Low: []string{
			"no flood", "unlikely", "minimal risk", "safe", "little danger",
			"not worried", "negligible", "no threat",
		},
	}
}

// DefaultCopingKeywords covers coping-appraisal language.
func DefaultCopingKeywords() Keywords {
	return Keywords{
		High: []string{
			"can afford", "confident", "effective", "capable", "easily",
			"strong ability", "well prepared",
		},
		Low: []string{
			"cannot afford", "can't afford", "helpless", "unable",
			"too expensive", "no resources", "powerless",
		},
	}
}

var (
	tokenRe = regexp.MustCompile(`\b(VH|H|M|L|VL)\b`)

	// Qualifier phrasing that should win over naive substring matches.
	// "low risk of flooding" must not classify high just because "risk of
	// flood" is a high keyword.
	defaultLowQualifierRe = regexp.MustCompile(`(?i)\b(?:minor|slight|small)\b.{0,40}\b(?:risk|threat|concern|chance|danger)|\bremains? low\b|\blow\b`)
	defaultModQualifierRe = regexp.MustCompile(`(?i)\bmoderate\b.{0,40}\b(?:risk|threat|concern|chance|danger)\b`)

	// Escalation language overrides qualifier precedence in the same text.
	defaultEscalationRe = regexp.MustCompile(`(?i)\b(?:severe|critical|extreme|catastrophic|devastating|emergency)\b`)
)

// Classifier assigns a five-point level to free reasoning text using three
// ordered tiers: explicit token, qualifier precedence with escalation
// override, then substring dictionaries. Ambiguity defaults to medium.
type Classifier struct {
	lowQualifier *regexp.Regexp
	modQualifier *regexp.Regexp
	escalation   *regexp.Regexp
}

// NewClassifier returns a classifier with the default qualifier and
// escalation patterns.
func NewClassifier() *Classifier {
	return &Classifier{
		lowQualifier: defaultLowQualifierRe,
		modQualifier: defaultModQualifierRe,
		escalation:   defaultEscalationRe,
	}
}

// NewClassifierWithPatterns injects domain-specific qualifier and
// escalation regexes. Nil patterns keep the defaults.
func NewClassifierWithPatterns(lowQualifier, modQualifier, escalation *regexp.Regexp) *Classifier {
	c := NewClassifier()
	if lowQualifier != nil {
		c.lowQualifier = lowQualifier
	}
	if modQualifier != nil {
		c.modQualifier = modQualifier
	}
	if escalation != nil {
		c.escalation = escalation
	}
	return c
}

// ClassifyLabel maps text to a level. Tiers short-circuit in order.
func (c *Classifier) ClassifyLabel(text string, kw Keywords) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return LevelMedium
	}

	// Tier 1: an isolated categorical token is authoritative.
	if m := tokenRe.FindString(trimmed); m != "" {
		return m
	}

	// Tier 1.5: qualifier precedence, unless escalation language is also
	// present, in which case the high reading wins.
	lowQ := c.lowQualifier.MatchString(trimmed)
	modQ := c.modQualifier.MatchString(trimmed)
	if lowQ || modQ {
		if c.escalation.MatchString(trimmed) {
			return LevelHigh
		}
		if lowQ {
			return LevelLow
		}
		return LevelMedium
	}

	// Tier 2: substring dictionaries.
	lower := strings.ToLower(trimmed)
	for _, k := range kw.High {
		if strings.Contains(lower, k) {
			return LevelHigh
		}
	}
	for _, k := range kw.Low {
		if strings.Contains(lower, k) {
			return LevelLow
		}
	}

	logging.Get(logging.CategoryClassifier).Debug("no tier matched, defaulting to M: %.60s", trimmed)
	return LevelMedium
}
