// pkg/core/scenario.go
package core

import (
	"fmt"
	"math"
	"strings"
)

// TurnDirection is the evasive turn both ships take when they get close.
type TurnDirection string

const (
	TurnLeft  TurnDirection = "left"
	TurnRight TurnDirection = "right"
)

// ParseTurnDirection accepts "left" or "right" (case-insensitive).
func ParseTurnDirection(s string) (TurnDirection, error) {
	switch d := TurnDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case TurnLeft, TurnRight:
		return d, nil
	default:
		return "", fmt.Errorf("unknown turn direction %q", s)
	}
}

// Retrigger controls how often the distance trigger may fire a turn.
type Retrigger string

const (
	// RetriggerLatched fires once when the ships enter turn range and re-arms
	// only after they leave it.
	RetriggerLatched Retrigger = "latched"
	// RetriggerContinuous fires on every step spent within range.
	RetriggerContinuous Retrigger = "continuous"
)

// ParseRetrigger validates a retrigger mode. Empty selects RetriggerLatched.
func ParseRetrigger(s string) (Retrigger, error) {
	switch r := Retrigger(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RetriggerLatched, nil
	case RetriggerLatched, RetriggerContinuous:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown retrigger mode %q", ErrInvalidConfiguration, s)
	}
}

// ShipParams is the persisted state of one ship.
type ShipParams struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	VX     float64 `json:"vx" yaml:"vx"`
	VY     float64 `json:"vy" yaml:"vy"`
	Length float64 `json:"length" yaml:"length"`
	Width  float64 `json:"width" yaml:"width"`
}

// Scenario is the two-ship maneuver snapshot used for save and restore.
type Scenario struct {
	Ship1         ShipParams    `json:"ship1" yaml:"ship1"`
	Ship2         ShipParams    `json:"ship2" yaml:"ship2"`
	TurnDistance  float64       `json:"turn_distance" yaml:"turn_distance"`
	TurnDirection TurnDirection `json:"turn_direction" yaml:"turn_direction"`
}

// DefaultScenario matches the initial values offered by the UI.
func DefaultScenario() Scenario {
	return Scenario{
		Ship1:         ShipParams{X: 0, Y: 0, VX: 1, VY: 0, Length: 4, Width: 2},
		Ship2:         ShipParams{X: 10, Y: 0, VX: -1, VY: 0, Length: 4, Width: 2},
		TurnDistance:  5,
		TurnDirection: TurnLeft,
	}
}

// Validate checks footprint dimensions, finiteness and the turn direction.
func (s Scenario) Validate() error {
	for i, p := range []ShipParams{s.Ship1, s.Ship2} {
		if !(p.Length > 0) || !(p.Width > 0) {
			return fmt.Errorf("%w: ship%d footprint %gx%g must be positive", ErrInvalidConfiguration, i+1, p.Length, p.Width)
		}
		for _, f := range []float64{p.X, p.Y, p.VX, p.VY, p.Length, p.Width} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("%w: ship%d has non-finite values", ErrInvalidConfiguration, i+1)
			}
		}
	}
	if math.IsNaN(s.TurnDistance) || s.TurnDistance < 0 {
		return fmt.Errorf("%w: turn distance %g", ErrInvalidConfiguration, s.TurnDistance)
	}
	if _, err := ParseTurnDirection(string(s.TurnDirection)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}
