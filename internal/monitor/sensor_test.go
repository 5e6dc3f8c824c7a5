package monitor

import (
	"testing"

	"levee/internal/config"
)

func floodSensor() Sensor {
	return NewSensor(config.SensorConfig{
		Name: "flood_depth",
		Path: "flood.depth",
		Bins: []config.BinConfig{
			{Label: "dry", UpperBound: 0.0},
			{Label: "minor", UpperBound: 0.5},
			{Label: "major", UpperBound: 2.0},
		},
	})
}

func TestQuantizeFirstBinWins(t *testing.T) {
	s := floodSensor()
	cases := []struct {
		value float64
		want  string
	}{
		{-1.0, "dry"},
		{0.0, "dry"},
		{0.01, "minor"},
		{0.5, "minor"},
		{0.51, "major"},
		{2.0, "major"},
	}
	for _, tc := range cases {
		if got := s.Quantize(tc.value); got != tc.want {
			t.Errorf("Quantize(%v) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestQuantizePastEveryBoundIsUnknown(t *testing.T) {
	if got := floodSensor().Quantize(99.0); got != "UNKNOWN_flood_depth" {
		t.Errorf("Quantize(99) = %q, want UNKNOWN_flood_depth", got)
	}
}

func testEngine(t *testing.T) *SignatureEngine {
	t.Helper()
	e, err := NewSignatureEngine(config.DefaultMonitorConfig().Sensors)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestComputeSignatureDeterministic(t *testing.T) {
	e := testEngine(t)
	state := map[string]interface{}{
		"flood":     map[string]interface{}{"depth": 1.5},
		"household": map[string]interface{}{"savings": 5000.0},
		"insurance": map[string]interface{}{"premium_rate": 0.04},
	}
	first := e.ComputeSignature(state)
	for i := 0; i < 10; i++ {
		if got := e.ComputeSignature(state); got != first {
			t.Fatalf("signature not deterministic: %q vs %q", got, first)
		}
	}
	if len(first) != 16 {
		t.Errorf("signature width = %d, want 16 hex chars", len(first))
	}
}

func TestComputeSignatureDistinguishesStates(t *testing.T) {
	e := testEngine(t)
	dry := map[string]interface{}{"flood": map[string]interface{}{"depth": 0.0}}
	flooded := map[string]interface{}{"flood": map[string]interface{}{"depth": 1.5}}
	if e.ComputeSignature(dry) == e.ComputeSignature(flooded) {
		t.Error("different quantized states must hash differently")
	}
}

func TestResolvePathCoercion(t *testing.T) {
	e := testEngine(t)

	// Missing branches and non-numeric leaves coerce to 0.0, which lands
	// every sensor in its zero bin rather than failing.
	missing := map[string]interface{}{}
	nonNumeric := map[string]interface{}{
		"flood":     map[string]interface{}{"depth": "deep"},
		"household": map[string]interface{}{"savings": nil},
	}
	if e.ComputeSignature(missing) != e.ComputeSignature(nonNumeric) {
		t.Error("missing and non-numeric paths must both coerce to 0.0")
	}

	syms := e.Symbols(missing)
	if len(syms) != len(config.DefaultMonitorConfig().Sensors) {
		t.Fatalf("symbol count = %d", len(syms))
	}
}

func TestNewSignatureEngineRejectsBadSensor(t *testing.T) {
	_, err := NewSignatureEngine([]config.SensorConfig{{Name: "x", Path: "a"}})
	if err == nil {
		t.Fatal("expected error for sensor without bins")
	}
}
