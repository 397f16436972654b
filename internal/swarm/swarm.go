// Package swarm runs the fixed-horizon N-vessel simulation: steer, integrate,
// bounce, record.
package swarm

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/harborlab/shipsim/internal/collision"
	"github.com/harborlab/shipsim/internal/steering"
	"github.com/harborlab/shipsim/internal/worldmap"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
)

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulation) { s.log = l }
}

// WithStrategy replaces the pair collision test.
func WithStrategy(st collision.Strategy) Option {
	return func(s *Simulation) {
		if st != nil {
			s.strategy = st
		}
	}
}

// Simulation is a single swarm run. It is not safe for concurrent use.
type Simulation struct {
	cfg      core.SwarmConfig
	rng      *rand.Rand
	log      zerolog.Logger
	strategy collision.Strategy

	grid      *worldmap.Grid
	islands   []core.Vec2
	obstacles worldmap.Obstacles
	steer     steering.Controller
	vessels   []*core.Vessel
	ran       bool
}

// New validates cfg, generates the terrain and places the vessels. All
// randomness is drawn from rng in a fixed order: terrain, positions,
// velocities, destinations.
func New(cfg core.SwarmConfig, rng *rand.Rand, opts ...Option) (*Simulation, error) {
	terrain, err := core.ParseTerrain(string(cfg.Terrain))
	if err != nil {
		return nil, err
	}
	cfg.Terrain = terrain
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", core.ErrInvalidConfiguration)
	}

	s := &Simulation{
		cfg:      cfg,
		rng:      rng,
		log:      zerolog.Nop(),
		strategy: collision.Proximity{Radius: cfg.CollisionRadius},
	}
	for _, opt := range opts {
		opt(s)
	}

	switch terrain {
	case core.TerrainGrid:
		s.grid, err = worldmap.Generate(worldmap.ConfigFrom(cfg), rng)
		if err != nil {
			return nil, err
		}
		s.obstacles = s.grid
	case core.TerrainIslands:
		s.islands = worldmap.GenerateIslandPoints(cfg.MapSize, cfg.Border, cfg.Islands, rng)
		s.obstacles = worldmap.NewIslandField(s.islands, cfg.IslandRadius)
	case core.TerrainOpen:
		s.obstacles = worldmap.Open{}
	}
	s.steer = steering.New(cfg.Speed, cfg.AvoidRadius, s.obstacles)

	s.place()

	s.log.Debug().
		Int("ships", cfg.Ships).
		Str("terrain", string(terrain)).
		Str("weather", string(cfg.Weather)).
		Str("class", string(cfg.Class)).
		Float64("speed", cfg.Speed).
		Str("strategy", s.strategy.Name()).
		Msg("swarm initialised")

	return s, nil
}

// place draws initial positions, velocities and destinations.
func (s *Simulation) place() {
	lo, span := float64(s.cfg.Border), float64(s.cfg.MapSize-2*s.cfg.Border)
	if s.cfg.Terrain == core.TerrainOpen {
		lo, span = 0, float64(s.cfg.MapSize)
	}

	n := s.cfg.Ships
	s.vessels = make([]*core.Vessel, n)
	for i := range s.vessels {
		s.vessels[i] = &core.Vessel{ID: i}
	}
	for _, v := range s.vessels {
		v.Position = core.Vec2{X: s.rng.Float64()*span + lo, Y: s.rng.Float64()*span + lo}
	}
	for _, v := range s.vessels {
		v.Velocity = core.Vec2{X: s.rng.Float64() * s.cfg.Speed, Y: s.rng.Float64() * s.cfg.Speed}
	}
	for _, v := range s.vessels {
		v.Destination = core.Vec2{X: s.rng.Float64()*span + lo, Y: s.rng.Float64()*span + lo}
	}
}

// Config returns the normalised configuration of the run.
func (s *Simulation) Config() core.SwarmConfig { return s.cfg }

// Grid returns the generated grid, or nil for island and open terrain.
func (s *Simulation) Grid() *worldmap.Grid { return s.grid }

// Islands returns the island centres for island terrain.
func (s *Simulation) Islands() []core.Vec2 { return append([]core.Vec2(nil), s.islands...) }

// Vessels returns copies of the current vessel states.
func (s *Simulation) Vessels() []core.Vessel {
	out := make([]core.Vessel, len(s.vessels))
	for i, v := range s.vessels {
		out[i] = *v
	}
	return out
}

func (s *Simulation) positions() []core.Vec2 {
	out := make([]core.Vec2, len(s.vessels))
	for i, v := range s.vessels {
		out[i] = v.Position
	}
	return out
}

// Run advances the swarm Steps times and returns the record. A simulation
// runs once; cancellation is checked between steps.
func (s *Simulation) Run(ctx context.Context) (*core.SimulationRecord, error) {
	if s.ran {
		return nil, fmt.Errorf("swarm: simulation already ran")
	}
	s.ran = true

	dests := make([]core.Vec2, len(s.vessels))
	for i, v := range s.vessels {
		dests[i] = v.Destination
	}
	rec := core.NewSimulationRecord(s.cfg.Dt, s.cfg.Steps, s.positions(), dests)
	steer := s.cfg.Terrain != core.TerrainOpen

	started := time.Now()
	for step := 0; step < s.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("swarm: stopped at step %d: %w", step, err)
		}

		if steer {
			for _, v := range s.vessels {
				v.Velocity = s.steer.Steer(v.Position, v.Destination)
			}
		}
		for _, v := range s.vessels {
			v.Position = v.Position.Add(v.Velocity.Scale(s.cfg.Dt))
		}

		rec.Events = append(rec.Events, collision.Resolve(s.vessels, s.strategy, s.obstacles, step)...)
		rec.Append(s.positions())

		for i, v := range s.vessels {
			if rec.EndSteps[i] != core.NotReached {
				continue
			}
			if v.Position.Dist(v.Destination) < s.cfg.ArrivalRadius {
				rec.EndSteps[i] = step
				rec.Events = append(rec.Events, core.Event{
					Kind:     core.EventArrival,
					Step:     step,
					Ship:     v.ID,
					Other:    -1,
					Position: v.Position,
				})
			}
		}
	}

	s.log.Debug().
		Int("steps", s.cfg.Steps).
		Int("events", len(rec.Events)).
		Dur("elapsed", time.Since(started)).
		Msg("swarm finished")

	return rec, nil
}

// RunRecord bundles a finished record with the run inputs and terrain.
func (s *Simulation) RunRecord(id, label string, seed int64, startedAt time.Time, rec *core.SimulationRecord) *core.RunRecord {
	run := &core.RunRecord{
		ID:        id,
		Label:     label,
		StartedAt: startedAt,
		Seed:      seed,
		Config:    s.cfg,
		MapSize:   s.cfg.MapSize,
		Islands:   s.Islands(),
		Record:    rec,
	}
	if s.grid != nil {
		run.MapCells = s.grid.Cells()
	}
	return run
}
