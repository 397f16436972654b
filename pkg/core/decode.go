package core

import (
	"encoding/json"
	"fmt"
	"math"
)

// ScenarioFromMap validates a generically decoded scenario document: both
// ships with all six numeric fields, a numeric turn distance and a known turn
// direction. Any violation wraps ErrMalformedScenario.
func ScenarioFromMap(doc map[string]any) (Scenario, error) {
	var sc Scenario
	var err error

	if sc.Ship1, err = shipFromMap(doc, "ship1"); err != nil {
		return Scenario{}, err
	}
	if sc.Ship2, err = shipFromMap(doc, "ship2"); err != nil {
		return Scenario{}, err
	}
	if sc.TurnDistance, err = number(doc, "turn_distance"); err != nil {
		return Scenario{}, err
	}

	raw, ok := doc["turn_direction"]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: missing turn_direction", ErrMalformedScenario)
	}
	s, ok := raw.(string)
	if !ok {
		return Scenario{}, fmt.Errorf("%w: turn_direction is %T, want string", ErrMalformedScenario, raw)
	}
	dir, err := ParseTurnDirection(s)
	if err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
	}
	sc.TurnDirection = dir

	return sc, nil
}

func shipFromMap(doc map[string]any, key string) (ShipParams, error) {
	raw, ok := doc[key]
	if !ok {
		return ShipParams{}, fmt.Errorf("%w: missing %s", ErrMalformedScenario, key)
	}
	m, ok := asMap(raw)
	if !ok {
		return ShipParams{}, fmt.Errorf("%w: %s is %T, want object", ErrMalformedScenario, key, raw)
	}

	var p ShipParams
	fields := []struct {
		name string
		dst  *float64
	}{
		{"x", &p.X}, {"y", &p.Y}, {"vx", &p.VX}, {"vy", &p.VY},
		{"length", &p.Length}, {"width", &p.Width},
	}
	for _, f := range fields {
		v, err := number(m, f.name)
		if err != nil {
			return ShipParams{}, fmt.Errorf("%s: %w", key, err)
		}
		*f.dst = v
	}
	return p, nil
}

// asMap accepts the map shapes produced by encoding/json and yaml.v3.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func number(m map[string]any, key string) (float64, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedScenario, key)
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		var err error
		if f, err = v.Float64(); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMalformedScenario, key, err)
		}
	default:
		return 0, fmt.Errorf("%w: %s is %T, want number", ErrMalformedScenario, key, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s is not finite", ErrMalformedScenario, key)
	}
	return f, nil
}

// DecodeScenarioJSON strictly decodes the persisted JSON form.
func DecodeScenarioJSON(data []byte) (Scenario, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
	}
	if doc == nil {
		return Scenario{}, fmt.Errorf("%w: empty document", ErrMalformedScenario)
	}
	return ScenarioFromMap(doc)
}
