package monitor

import (
	"math"
	"testing"

	"levee/internal/config"
)

func newTestMonitor(t *testing.T, strategy config.SurpriseStrategy) *ContextMonitor {
	t.Helper()
	cfg := config.DefaultMonitorConfig()
	cfg.Strategy = strategy
	m, err := NewContextMonitor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func dryState() map[string]interface{} {
	return map[string]interface{}{"flood": map[string]interface{}{"depth": 0.0}}
}

func floodState() map[string]interface{} {
	return map[string]interface{}{"flood": map[string]interface{}{"depth": 1.5}}
}

func TestFirstObservationSurpriseIsOne(t *testing.T) {
	m := newTestMonitor(t, config.SurpriseFrequency)
	obs := m.Observe(dryState())
	if obs.Surprise != 1.0 {
		t.Fatalf("first observation surprise = %v, want exactly 1.0", obs.Surprise)
	}
	if !obs.Novel {
		t.Error("first observation must be novel")
	}
}

func TestRepeatedObservationSurpriseDrops(t *testing.T) {
	m := newTestMonitor(t, config.SurpriseFrequency)
	first := m.Observe(dryState())
	second := m.Observe(dryState())

	if second.Surprise >= first.Surprise {
		t.Fatalf("repeat surprise %v must be strictly below first %v", second.Surprise, first.Surprise)
	}
	if second.Novel {
		t.Error("repeat must not be novel")
	}

	// With one prior event of the same signature, prior/totalBefore = 1/1.
	if second.Surprise != 0.0 {
		t.Errorf("second surprise = %v, want 0.0", second.Surprise)
	}
}

// The surprise computation must use counts as they stood before the current
// observation; folding the observation in first would change the values.
func TestSurpriseUsesPreIncrementCounts(t *testing.T) {
	m := newTestMonitor(t, config.SurpriseFrequency)
	m.Observe(dryState())
	m.Observe(floodState())
	obs := m.Observe(dryState())

	// prior(dry)=1, totalBefore=2 -> 1 - 1/2 = 0.5. Post-increment
	// ordering would give 1 - 2/3 instead.
	if math.Abs(obs.Surprise-0.5) > 1e-12 {
		t.Fatalf("surprise = %v, want 0.5 from pre-increment counts", obs.Surprise)
	}
}

func TestLaplaceStrategyFirstObservationBelowOne(t *testing.T) {
	m := newTestMonitor(t, config.SurpriseLaplace)
	obs := m.Observe(dryState())

	// vocab 64: 1 - 1/64.
	want := 1.0 - 1.0/64.0
	if math.Abs(obs.Surprise-want) > 1e-12 {
		t.Fatalf("laplace first surprise = %v, want %v", obs.Surprise, want)
	}

	second := m.Observe(dryState())
	if second.Surprise >= obs.Surprise {
		t.Error("laplace surprise must also drop on repeats")
	}
}

func TestDetermineSystem(t *testing.T) {
	m := newTestMonitor(t, config.SurpriseFrequency)
	if got := m.DetermineSystem(0.9); got != ModeDeliberative {
		t.Errorf("surprise above threshold = %q", got)
	}
	if got := m.DetermineSystem(0.7); got != ModeRoutine {
		t.Errorf("surprise at threshold = %q, threshold must be exclusive", got)
	}
	if got := m.DetermineSystem(0.1); got != ModeRoutine {
		t.Errorf("low surprise = %q", got)
	}
}

func TestReset(t *testing.T) {
	m := newTestMonitor(t, config.SurpriseFrequency)
	m.Observe(dryState())
	m.Observe(floodState())
	m.Reset()

	if m.TotalEvents() != 0 || m.DistinctSignatures() != 0 {
		t.Fatal("reset must clear all frequency state")
	}
	if obs := m.Observe(dryState()); obs.Surprise != 1.0 {
		t.Errorf("post-reset first observation surprise = %v", obs.Surprise)
	}
}

func TestSurpriseFunctions(t *testing.T) {
	if got := FrequencySurprise(0, 0); got != 1.0 {
		t.Errorf("FrequencySurprise(0,0) = %v", got)
	}
	if got := FrequencySurprise(0, 10); got != 1.0 {
		t.Errorf("unseen signature with history = %v", got)
	}
	if got := FrequencySurprise(5, 10); got != 0.5 {
		t.Errorf("FrequencySurprise(5,10) = %v", got)
	}
	if got := LaplaceSurprise(0, 0, 0); got != 0.0 {
		t.Errorf("LaplaceSurprise with clamped vocab = %v", got)
	}
}
