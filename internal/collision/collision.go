// Package collision decides whether two bodies touch and applies the swarm
// bounce response.
package collision

import (
	"fmt"
	"math"
	"strings"

	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/worldmap"
	"github.com/harborlab/shipsim/pkg/core"
)

// Body is anything with a reference point and a world-space outline.
type Body interface {
	Center() core.Vec2
	Vertices() []core.Vec2
}

// Strategy is a pairwise collision test.
type Strategy interface {
	Name() string
	Collides(a, b Body) bool
}

// DefaultProximityRadius is the swarm bounce distance.
const DefaultProximityRadius = 10.0

// Proximity treats bodies as colliding when their centres are closer than Radius.
type Proximity struct {
	Radius float64
}

func (p Proximity) Name() string { return "proximity" }

func (p Proximity) Collides(a, b Body) bool {
	return a.Center().Dist(b.Center()) < p.Radius
}

// SeparatingAxis tests convex polygons by projecting both onto the normal of
// every edge. Bodies with fewer than three vertices are tested as their centre.
type SeparatingAxis struct{}

func (SeparatingAxis) Name() string { return "sat" }

func (SeparatingAxis) Collides(a, b Body) bool {
	pa, pb := outline(a), outline(b)
	return !separated(pa, pb) && !separated(pb, pa)
}

func outline(b Body) []core.Vec2 {
	v := b.Vertices()
	if len(v) < 3 {
		return []core.Vec2{b.Center()}
	}
	return v
}

// Footprints tests the exact hull polygons with the geometry engine. Bodies
// whose outline is not a valid polygon fall back to SeparatingAxis.
type Footprints struct{}

func (Footprints) Name() string { return "geom" }

func (Footprints) Collides(a, b Body) bool {
	hit, err := geo.OutlinesIntersect(a.Vertices(), b.Vertices())
	if err != nil {
		return SeparatingAxis{}.Collides(a, b)
	}
	return hit
}

// separated reports whether any edge normal of poly separates the two sets.
func separated(poly, other []core.Vec2) bool {
	if len(poly) < 2 {
		return false
	}
	for i := range poly {
		edge := poly[(i+1)%len(poly)].Sub(poly[i])
		if edge.IsZero() {
			continue
		}
		axis := edge.Perp()
		minA, maxA := project(poly, axis)
		minB, maxB := project(other, axis)
		if maxA < minB || maxB < minA {
			return true
		}
	}
	return false
}

func project(pts []core.Vec2, axis core.Vec2) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

// Mode names a simulation variant.
type Mode string

const (
	ModeSwarm    Mode = "swarm"
	ModeManeuver Mode = "maneuver"
)

// ForMode returns the default strategy for a simulation variant.
func ForMode(m Mode) Strategy {
	if m == ModeManeuver {
		return SeparatingAxis{}
	}
	return Proximity{Radius: DefaultProximityRadius}
}

// Parse resolves a strategy name. Empty selects the mode default.
func Parse(name string, m Mode, radius float64) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return ForMode(m), nil
	case "proximity":
		if radius <= 0 {
			radius = DefaultProximityRadius
		}
		return Proximity{Radius: radius}, nil
	case "sat":
		return SeparatingAxis{}, nil
	case "geom":
		return Footprints{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown collision strategy %q", core.ErrInvalidConfiguration, name)
	}
}

// resolvePairsFor negates both velocities of every pair (i, j>i) that
// collides. A vessel in several overlapping pairs flips once per pair.
func resolvePairsFor(vessels []*core.Vessel, i int, s Strategy, step int) []core.Event {
	var events []core.Event
	a := vessels[i]
	for j := i + 1; j < len(vessels); j++ {
		b := vessels[j]
		if !s.Collides(a, b) {
			continue
		}
		a.Velocity = a.Velocity.Neg()
		b.Velocity = b.Velocity.Neg()
		events = append(events, core.Event{
			Kind:     core.EventPairCollision,
			Step:     step,
			Ship:     a.ID,
			Other:    b.ID,
			Position: a.Position,
		})
	}
	return events
}

// ResolveTerrain negates the velocity of a vessel sitting on an obstacle.
func ResolveTerrain(v *core.Vessel, obstacles worldmap.Obstacles, step int) (core.Event, bool) {
	if obstacles == nil || !obstacles.Blocked(v.Position) {
		return core.Event{}, false
	}
	v.Velocity = v.Velocity.Neg()
	return core.Event{
		Kind:     core.EventTerrainCollision,
		Step:     step,
		Ship:     v.ID,
		Other:    -1,
		Position: v.Position,
	}, true
}

// Resolve runs the combined per-vessel pass: for each i, the pair checks
// against every j>i, then the terrain check of i.
func Resolve(vessels []*core.Vessel, s Strategy, obstacles worldmap.Obstacles, step int) []core.Event {
	var events []core.Event
	for i, v := range vessels {
		events = append(events, resolvePairsFor(vessels, i, s, step)...)
		if ev, ok := ResolveTerrain(v, obstacles, step); ok {
			events = append(events, ev)
		}
	}
	return events
}
