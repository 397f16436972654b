package worldmap

import (
	"math/rand"

	"github.com/harborlab/shipsim/pkg/core"
)

// GenerateIslandPoints draws count island centres from [border, size-border).
func GenerateIslandPoints(size, border, count int, rng *rand.Rand) []core.Vec2 {
	cfg := GridConfig{Size: size, Border: border}
	out := make([]core.Vec2, count)
	for i := range out {
		out[i] = core.Vec2{X: float64(interior(cfg, rng)), Y: float64(interior(cfg, rng))}
	}
	return out
}

// IslandField is a set of point islands with a shared footprint radius.
type IslandField struct {
	Points []core.Vec2
	Radius float64
}

// NewIslandField copies the points.
func NewIslandField(points []core.Vec2, radius float64) *IslandField {
	return &IslandField{Points: append([]core.Vec2(nil), points...), Radius: radius}
}

// Blocked reports whether p lies within Radius of any island.
func (f *IslandField) Blocked(p core.Vec2) bool {
	for _, c := range f.Points {
		if p.Dist(c) < f.Radius {
			return true
		}
	}
	return false
}

// ObstaclesNear visits island centres in insertion order.
func (f *IslandField) ObstaclesNear(p core.Vec2, radius float64, fn func(obstacle core.Vec2, dist float64)) {
	for _, c := range f.Points {
		if d := p.Dist(c); d < radius {
			fn(c, d)
		}
	}
}

// Open is the obstacle-free sea.
type Open struct{}

func (Open) Blocked(core.Vec2) bool { return false }

func (Open) ObstaclesNear(core.Vec2, float64, func(core.Vec2, float64)) {}

var (
	_ Obstacles = (*Grid)(nil)
	_ Obstacles = (*IslandField)(nil)
	_ Obstacles = Open{}
)
