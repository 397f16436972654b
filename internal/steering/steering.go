// Package steering computes swarm velocities: seek the destination at cruise
// speed, pushed away from nearby obstacles.
package steering

import (
	"github.com/harborlab/shipsim/internal/worldmap"
	"github.com/harborlab/shipsim/pkg/core"
)

// Controller is stateless; one value serves every vessel of a run.
type Controller struct {
	Speed       float64
	AvoidRadius float64
	Obstacles   worldmap.Obstacles
}

// New returns a controller. A nil obstacle set means open water.
func New(speed, avoidRadius float64, obstacles worldmap.Obstacles) Controller {
	if obstacles == nil {
		obstacles = worldmap.Open{}
	}
	return Controller{Speed: speed, AvoidRadius: avoidRadius, Obstacles: obstacles}
}

// Steer returns the new velocity for a vessel at pos heading to dest.
// The previous velocity is discarded. A vessel sitting on its destination
// gets no seek term but is still repelled.
func (c Controller) Steer(pos, dest core.Vec2) core.Vec2 {
	var v core.Vec2
	if heading, ok := dest.Sub(pos).Normalize(); ok {
		v = heading.Scale(c.Speed)
	}
	return v.Add(c.Repulsion(pos))
}

// Repulsion sums a unit push away from every obstacle within AvoidRadius.
func (c Controller) Repulsion(pos core.Vec2) core.Vec2 {
	var push core.Vec2
	if c.Obstacles == nil {
		return push
	}
	c.Obstacles.ObstaclesNear(pos, c.AvoidRadius, func(o core.Vec2, dist float64) {
		if dist == 0 {
			return
		}
		push = push.Add(pos.Sub(o).Scale(1 / dist))
	})
	return push
}
