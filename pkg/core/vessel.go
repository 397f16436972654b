// pkg/core/vessel.go
package core

import (
	"fmt"
	"math"
)

// Vessel is a swarm ship with a point footprint.
type Vessel struct {
	ID          int
	Position    Vec2
	Velocity    Vec2
	Destination Vec2
}

// Center implements collision.Body.
func (v *Vessel) Center() Vec2 { return v.Position }

// Vertices implements collision.Body. A vessel is a point.
func (v *Vessel) Vertices() []Vec2 { return []Vec2{v.Position} }

// DefaultTurnRate is stored on every ship built from a scenario.
const DefaultTurnRate = 0.1

// moveStepFactor scales the per-call displacement by ship size.
const moveStepFactor = 0.1

// Ship is a two-ship maneuver participant with a convex polygon footprint.
// Shape holds vertices relative to Position and is never rotated.
type Ship struct {
	Position Vec2
	Velocity Vec2
	Length   float64
	Width    float64
	Shape    []Vec2
	TurnRate float64
}

// HexFootprint builds the elongated hexagon used for ship hulls.
func HexFootprint(length, width float64) []Vec2 {
	hl, hw := length/2, width/2
	return []Vec2{
		{-hl, -hw},
		{-hl, hw},
		{0, hw + hw/2},
		{hl, hw},
		{hl, -hw},
		{0, -hw - hw/2},
	}
}

// NewShip builds a ship from scenario parameters.
func NewShip(p ShipParams) (*Ship, error) {
	if !(p.Length > 0) || !(p.Width > 0) || math.IsInf(p.Length, 0) || math.IsInf(p.Width, 0) {
		return nil, fmt.Errorf("%w: footprint %gx%g must be positive", ErrInvalidConfiguration, p.Length, p.Width)
	}
	return &Ship{
		Position: Vec2{p.X, p.Y},
		Velocity: Vec2{p.VX, p.VY},
		Length:   p.Length,
		Width:    p.Width,
		Shape:    HexFootprint(p.Length, p.Width),
		TurnRate: DefaultTurnRate,
	}, nil
}

// Center implements collision.Body.
func (s *Ship) Center() Vec2 { return s.Position }

// Vertices returns the footprint translated to the current position.
func (s *Ship) Vertices() []Vec2 {
	out := make([]Vec2, len(s.Shape))
	for i, v := range s.Shape {
		out[i] = s.Position.Add(v)
	}
	return out
}

// StepLength is the displacement scale applied by Move: 10% of the larger
// half extent of the hull.
func (s *Ship) StepLength() float64 {
	return moveStepFactor * math.Max(s.Length/2, s.Width/2)
}

// Move integrates the position: position += velocity * StepLength * dt.
func (s *Ship) Move(dt float64) {
	s.Position = s.Position.Add(s.Velocity.Scale(s.StepLength() * dt))
}

// Turn rotates the velocity vector by 90° in the given direction.
// The footprint is not rotated.
func (s *Ship) Turn(dir TurnDirection) {
	vx, vy := s.Velocity.X, s.Velocity.Y
	switch dir {
	case TurnLeft:
		s.Velocity = Vec2{-vy, vx}
	case TurnRight:
		s.Velocity = Vec2{vy, -vx}
	}
}

// Params reports the ship's current state in scenario form.
func (s *Ship) Params() ShipParams {
	return ShipParams{
		X:      s.Position.X,
		Y:      s.Position.Y,
		VX:     s.Velocity.X,
		VY:     s.Velocity.Y,
		Length: s.Length,
		Width:  s.Width,
	}
}

// Clone returns a deep copy.
func (s *Ship) Clone() *Ship {
	c := *s
	c.Shape = append([]Vec2(nil), s.Shape...)
	return &c
}
