// Package monitor implements the symbolic context monitor: sensors quantize
// continuous world state into symbols, the signature engine fuses them into
// a deterministic context signature, and the monitor scores each signature's
// novelty to select a processing mode.
package monitor

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"levee/internal/config"
	"levee/internal/logging"
)

// Sensor quantizes one dotted-path observation into a discrete symbol.
type Sensor struct {
	cfg config.SensorConfig
}

// NewSensor wraps a validated sensor config.
func NewSensor(cfg config.SensorConfig) Sensor {
	return Sensor{cfg: cfg}
}

// Name returns the sensor's symbol prefix.
func (s Sensor) Name() string { return s.cfg.Name }

// Path returns the dotted observation path.
func (s Sensor) Path() string { return s.cfg.Path }

// Quantize returns the label of the first bin (in declared order) whose
// upper bound is at or above the value. Values past every bound get an
// explicit UNKNOWN label rather than silently landing in the last bin.
func (s Sensor) Quantize(value float64) string {
	for _, bin := range s.cfg.Bins {
		if value <= bin.UpperBound {
			return bin.Label
		}
	}
	return "UNKNOWN_" + s.cfg.Name
}

// SignatureEngine fuses a fixed sensor set into a context signature.
type SignatureEngine struct {
	sensors []Sensor
}

// NewSignatureEngine builds an engine from sensor configs.
func NewSignatureEngine(cfgs []config.SensorConfig) (*SignatureEngine, error) {
	sensors := make([]Sensor, 0, len(cfgs))
	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		sensors = append(sensors, NewSensor(c))
	}
	return &SignatureEngine{sensors: sensors}, nil
}

// ComputeSignature resolves each sensor's path into the nested state map,
// quantizes, sorts the resulting symbols for order independence, and hashes
// them to a fixed-width hex signature. Pure for a fixed sensor set.
func (e *SignatureEngine) ComputeSignature(state map[string]interface{}) string {
	symbols := make([]string, 0, len(e.sensors))
	for _, s := range e.sensors {
		value := resolvePath(state, s.Path())
		label := s.Quantize(value)
		symbols = append(symbols, s.Name()+"="+label)
	}
	sort.Strings(symbols)

	h := fnv.New64a()
	h.Write([]byte(strings.Join(symbols, "|")))
	sig := fmt.Sprintf("%016x", h.Sum64())
	logging.MonitorDebug("signature %s <- %s", sig, strings.Join(symbols, "|"))
	return sig
}

// Symbols returns the sorted symbol list without hashing, for diagnostics.
func (e *SignatureEngine) Symbols(state map[string]interface{}) []string {
	symbols := make([]string, 0, len(e.sensors))
	for _, s := range e.sensors {
		symbols = append(symbols, s.Name()+"="+s.Quantize(resolvePath(state, s.Path())))
	}
	sort.Strings(symbols)
	return symbols
}

// resolvePath walks a dotted path through nested maps. Missing keys,
// non-map intermediates and non-numeric leaves all coerce to 0.0.
func resolvePath(state map[string]interface{}, path string) float64 {
	parts := strings.Split(path, ".")
	var current interface{} = state
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return 0.0
		}
		current, ok = m[part]
		if !ok {
			return 0.0
		}
	}
	return toFloat(current)
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	default:
		return 0.0
	}
}
