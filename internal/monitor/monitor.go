package monitor

import (
	"levee/internal/config"
	"levee/internal/logging"
)

// Mode is the processing mode selected by the arousal check.
type Mode string

const (
	// ModeRoutine indicates a familiar context; cached behavior suffices.
	ModeRoutine Mode = "routine"

	// ModeDeliberative indicates a surprising context that warrants the
	// expensive reasoning path.
	ModeDeliberative Mode = "deliberative"
)

// Observation is the result of folding one world state into the monitor.
type Observation struct {
	Signature string  `json:"signature"`
	Surprise  float64 `json:"surprise"`
	Mode      Mode    `json:"mode"`
	Novel     bool    `json:"novel"`
}

// ContextMonitor tracks signature frequencies and scores novelty. Owned by
// one simulation loop; not safe for concurrent use.
type ContextMonitor struct {
	engine *SignatureEngine
	cfg    config.MonitorConfig
	counts map[string]int
	total  int
}

// NewContextMonitor builds a monitor from config.
func NewContextMonitor(cfg config.MonitorConfig) (*ContextMonitor, error) {
	engine, err := NewSignatureEngine(cfg.Sensors)
	if err != nil {
		return nil, err
	}
	return &ContextMonitor{
		engine: engine,
		cfg:    cfg,
		counts: make(map[string]int),
	}, nil
}

// Observe folds one world state into the monitor and returns its novelty.
//
// Surprise is evaluated against counts as they stood BEFORE this
// observation; the count and total increment only afterwards. Reordering
// these steps changes the surprise values.
func (m *ContextMonitor) Observe(state map[string]interface{}) Observation {
	sig := m.engine.ComputeSignature(state)

	prior := m.counts[sig]
	novel := prior == 0

	var surprise float64
	switch m.cfg.Strategy {
	case config.SurpriseLaplace:
		surprise = LaplaceSurprise(prior, m.total, m.cfg.VocabSize)
	default:
		surprise = FrequencySurprise(prior, m.total)
	}

	m.counts[sig] = prior + 1
	m.total++

	obs := Observation{
		Signature: sig,
		Surprise:  surprise,
		Mode:      m.DetermineSystem(surprise),
		Novel:     novel,
	}
	logging.MonitorDebug("observe sig=%s surprise=%.3f mode=%s", sig, surprise, obs.Mode)
	return obs
}

// DetermineSystem selects the deliberative mode when surprise exceeds the
// arousal threshold.
func (m *ContextMonitor) DetermineSystem(surprise float64) Mode {
	if surprise > m.cfg.ArousalThreshold {
		return ModeDeliberative
	}
	return ModeRoutine
}

// TotalEvents returns the number of observations folded in so far.
func (m *ContextMonitor) TotalEvents() int { return m.total }

// DistinctSignatures returns the number of distinct signatures seen.
func (m *ContextMonitor) DistinctSignatures() int { return len(m.counts) }

// Reset clears all frequency state.
func (m *ContextMonitor) Reset() {
	m.counts = make(map[string]int)
	m.total = 0
}
