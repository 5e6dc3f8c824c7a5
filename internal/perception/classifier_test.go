package perception

import (
	"regexp"
	"testing"
)

func TestClassifyLabelTiers(t *testing.T) {
	c := NewClassifier()
	kw := DefaultThreatKeywords()

	cases := []struct {
		name string
		text string
		want string
	}{
		// Tier 1: isolated categorical tokens are authoritative.
		{"bare token", "TP: H", "H"},
		{"very high token", "my appraisal is VH overall", "VH"},
		{"very low token", "VL", "VL"},

		// Tier 1.5: qualifier precedence resolves the negation problem.
		// "risk of flood" is a high keyword, but the low framing wins.
		{"qualifier beats keyword", "flood risk remains low despite concern", "L"},
		{"low risk of flooding", "there is a low risk of flooding this year", "L"},
		{"moderate framing", "moderate concern about the river", "M"},

		// Escalation override beats qualifier precedence.
		{"escalation override", "low but ultimately devastating flooding expected", "H"},
		{"severe overrides low", "risk remains low, yet severe damage is possible", "H"},

		// Tier 2: substring dictionaries.
		{"high keyword", "a major flood is coming for us", "H"},
		{"low keyword", "flooding here is unlikely", "L"},

		// Default.
		{"no match defaults medium", "the river is a river", "M"},
		{"empty defaults medium", "   ", "M"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.ClassifyLabel(tc.text, kw); got != tc.want {
				t.Errorf("ClassifyLabel(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassifyLabelCopingConstruct(t *testing.T) {
	c := NewClassifier()
	kw := DefaultCopingKeywords()

	if got := c.ClassifyLabel("we cannot afford any of these measures", kw); got != LevelLow {
		t.Errorf("coping low = %q", got)
	}
	if got := c.ClassifyLabel("we are confident and well prepared", kw); got != LevelHigh {
		t.Errorf("coping high = %q", got)
	}
}

func TestClassifierCustomPatterns(t *testing.T) {
	// A drought domain swaps the flood vocabulary without touching tiers.
	c := NewClassifierWithPatterns(
		regexp.MustCompile(`(?i)\bample\b`),
		nil,
		regexp.MustCompile(`(?i)\bexhausted\b`),
	)
	kw := Keywords{High: []string{"reservoir empty"}, Low: []string{"reservoir full"}}

	if got := c.ClassifyLabel("supplies are ample this season", kw); got != LevelLow {
		t.Errorf("custom qualifier = %q", got)
	}
	if got := c.ClassifyLabel("ample on paper but aquifer exhausted", kw); got != LevelHigh {
		t.Errorf("custom escalation override = %q", got)
	}
	if got := c.ClassifyLabel("the reservoir empty warnings continue", kw); got != LevelHigh {
		t.Errorf("custom keyword = %q", got)
	}
}
