package monitor

import (
	"testing"

	"levee/internal/config"
)

func TestPeriodicTrigger(t *testing.T) {
	cfg := config.DefaultReflectionConfig()
	cfg.PeriodicInterval = 5

	cases := []struct {
		year int
		want bool
	}{
		{0, false}, // year 0 never fires
		{1, false},
		{5, true},
		{7, false},
		{10, true},
	}
	for _, tc := range cases {
		got := ShouldReflectTriggered("h1", "household", tc.year, TriggerPeriodic, cfg, TriggerContext{})
		if got != tc.want {
			t.Errorf("periodic year %d = %v, want %v", tc.year, got, tc.want)
		}
	}

	cfg.PeriodicInterval = 0
	if ShouldReflectTriggered("h1", "household", 10, TriggerPeriodic, cfg, TriggerContext{}) {
		t.Error("zero interval must disable the periodic trigger")
	}
}

func TestCrisisTrigger(t *testing.T) {
	cfg := config.DefaultReflectionConfig()

	// Fires for every actor category.
	for _, cat := range []string{"household", "insurance", "government", "irrigator"} {
		if !ShouldReflectTriggered("a1", cat, 3, TriggerCrisis, cfg, TriggerContext{}) {
			t.Errorf("crisis must fire for %s", cat)
		}
	}

	cfg.Crisis = false
	if ShouldReflectTriggered("a1", "household", 3, TriggerCrisis, cfg, TriggerContext{}) {
		t.Error("disabled crisis trigger must not fire")
	}
}

func TestDecisionTrigger(t *testing.T) {
	cfg := config.DefaultReflectionConfig()
	cfg.DecisionTypes = []string{"relocate", "elevate_house"}

	if !ShouldReflectTriggered("h1", "household", 2, TriggerDecision, cfg, TriggerContext{LastDecision: "relocate"}) {
		t.Error("listed decision must fire")
	}
	if ShouldReflectTriggered("h1", "household", 2, TriggerDecision, cfg, TriggerContext{LastDecision: "do_nothing"}) {
		t.Error("unlisted decision must not fire")
	}

	cfg.DecisionTypes = nil
	if ShouldReflectTriggered("h1", "household", 2, TriggerDecision, cfg, TriggerContext{LastDecision: "relocate"}) {
		t.Error("empty decision list means the trigger never fires")
	}
}

func TestInstitutionalTrigger(t *testing.T) {
	cfg := config.DefaultReflectionConfig()
	cfg.InstitutionalThreshold = 0.3
	cfg.InstitutionalCategories = []string{"government", "insurance"}

	ctx := TriggerContext{PolicyChangeMagnitude: 0.5}
	if !ShouldReflectTriggered("g1", "government", 2, TriggerInstitutional, cfg, ctx) {
		t.Error("institutional category above threshold must fire")
	}
	if ShouldReflectTriggered("g1", "government", 2, TriggerInstitutional, cfg, TriggerContext{PolicyChangeMagnitude: 0.3}) {
		t.Error("threshold is exclusive")
	}
	// Non-institutional categories never fire regardless of context.
	if ShouldReflectTriggered("h1", "household", 2, TriggerInstitutional, cfg, ctx) {
		t.Error("household must not fire on the institutional trigger")
	}
}

func TestUnknownTriggerKindNeverFires(t *testing.T) {
	cfg := config.DefaultReflectionConfig()
	if ShouldReflectTriggered("h1", "household", 2, TriggerKind("COSMIC"), cfg, TriggerContext{}) {
		t.Error("unknown trigger kinds must not fire")
	}
}

func TestLegacyShouldReflect(t *testing.T) {
	cases := []struct {
		year, interval int
		want           bool
	}{
		{0, 5, false},
		{5, 5, true},
		{6, 5, false},
		{10, 5, true},
		{10, 0, false},
		{10, -1, false},
	}
	for _, tc := range cases {
		if got := ShouldReflect("h1", tc.year, tc.interval); got != tc.want {
			t.Errorf("ShouldReflect(year=%d, interval=%d) = %v, want %v", tc.year, tc.interval, got, tc.want)
		}
	}
}
