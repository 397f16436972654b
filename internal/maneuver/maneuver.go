// Package maneuver steps two hull-footprint ships toward each other and turns
// them away when they come within range.
package maneuver

import (
	"fmt"

	"github.com/harborlab/shipsim/internal/collision"
	"github.com/harborlab/shipsim/internal/queue"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
)

const (
	// DefaultDt is the time advanced by one Step.
	DefaultDt = 0.1
	// DefaultEventLimit caps the per-session event log.
	DefaultEventLimit = 256
)

// Option configures a Session.
type Option func(*Session)

// WithStrategy replaces the hull collision test. Default is SAT.
func WithStrategy(s collision.Strategy) Option {
	return func(m *Session) {
		if s != nil {
			m.strategy = s
		}
	}
}

// WithDt sets the step length in seconds.
func WithDt(dt float64) Option {
	return func(m *Session) {
		if dt > 0 {
			m.dt = dt
		}
	}
}

// WithRetrigger selects the turn trigger mode.
func WithRetrigger(r core.Retrigger) Option {
	return func(m *Session) { m.retrigger = r }
}

// WithEventLimit bounds the event log.
func WithEventLimit(n int) Option {
	return func(m *Session) { m.eventLimit = n }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Session) { m.log = l }
}

// StepResult reports what one Step did.
type StepResult struct {
	Step      int     `json:"step"`
	Distance  float64 `json:"distance"`
	Turned    bool    `json:"turned"`
	Collision bool    `json:"collision"`
}

// Session is the two-ship maneuver state. It is not safe for concurrent use;
// callers serialise access.
type Session struct {
	initial core.Scenario

	ship1, ship2  *core.Ship
	turnDistance  float64
	turnDirection core.TurnDirection

	dt         float64
	retrigger  core.Retrigger
	armed      bool
	step       int
	collision  bool
	strategy   collision.Strategy
	eventLimit int
	events     *queue.Queue[core.Event]
	log        zerolog.Logger
}

// New validates sc and builds the ships. Reset returns to sc.
func New(sc core.Scenario, opts ...Option) (*Session, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	m := &Session{
		initial:    sc,
		dt:         DefaultDt,
		retrigger:  core.RetriggerLatched,
		strategy:   collision.ForMode(collision.ModeManeuver),
		eventLimit: DefaultEventLimit,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	r, err := core.ParseRetrigger(string(m.retrigger))
	if err != nil {
		return nil, err
	}
	m.retrigger = r
	m.events = queue.NewBounded[core.Event](m.eventLimit)

	if err := m.load(sc); err != nil {
		return nil, err
	}
	return m, nil
}

// load replaces both ships and the maneuver parameters and zeroes the counter.
// It leaves m untouched on error.
func (m *Session) load(sc core.Scenario) error {
	s1, err := core.NewShip(sc.Ship1)
	if err != nil {
		return fmt.Errorf("ship1: %w", err)
	}
	s2, err := core.NewShip(sc.Ship2)
	if err != nil {
		return fmt.Errorf("ship2: %w", err)
	}
	dir, err := core.ParseTurnDirection(string(sc.TurnDirection))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidConfiguration, err)
	}

	m.ship1, m.ship2 = s1, s2
	m.turnDistance = sc.TurnDistance
	m.turnDirection = dir
	m.step = 0
	m.armed = true
	m.collision = m.strategy.Collides(m.ship1, m.ship2)
	return nil
}

// Step moves both ships, turns them if they are within turn distance, bumps
// the step counter and re-evaluates the hull collision.
func (m *Session) Step() StepResult {
	m.ship1.Move(m.dt)
	m.ship2.Move(m.dt)

	dist := m.ship1.Position.Dist(m.ship2.Position)
	within := dist < m.turnDistance

	turned := false
	if within && (m.armed || m.retrigger == core.RetriggerContinuous) {
		m.ship1.Turn(m.turnDirection)
		m.ship2.Turn(m.turnDirection)
		turned = true
		m.armed = false
	}
	if !within {
		m.armed = true
	}

	m.step++

	was := m.collision
	m.collision = m.strategy.Collides(m.ship1, m.ship2)

	if turned {
		m.events.Push(core.Event{
			Kind:     core.EventTurn,
			Step:     m.step,
			Ship:     0,
			Other:    1,
			Position: m.ship1.Position,
			Detail:   string(m.turnDirection),
		})
	}
	if m.collision && !was {
		m.events.Push(core.Event{
			Kind:     core.EventHullContact,
			Step:     m.step,
			Ship:     0,
			Other:    1,
			Position: m.ship1.Position,
			Detail:   m.strategy.Name(),
		})
		m.log.Info().Int("step", m.step).Float64("distance", dist).Msg("hull contact")
	}

	return StepResult{Step: m.step, Distance: dist, Turned: turned, Collision: m.collision}
}

// Reset rebuilds the ships from the scenario the session was created with.
// On error the live state is left untouched.
func (m *Session) Reset() error {
	if err := m.load(m.initial); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	m.events.Clear()
	return nil
}

// Snapshot returns the live ship state with the maneuver parameters.
func (m *Session) Snapshot() core.Scenario {
	return core.Scenario{
		Ship1:         m.ship1.Params(),
		Ship2:         m.ship2.Params(),
		TurnDistance:  m.turnDistance,
		TurnDirection: m.turnDirection,
	}
}

// Restore replaces the live state with sc. On error the session is unchanged.
func (m *Session) Restore(sc core.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	return m.load(sc)
}

// Collision reports whether the hulls overlap in the current state.
func (m *Session) Collision() bool { return m.collision }

// StepCount returns the steps taken since creation, Reset or Restore.
func (m *Session) StepCount() int { return m.step }

// Ships returns copies of both ships.
func (m *Session) Ships() (core.Ship, core.Ship) {
	return *m.ship1.Clone(), *m.ship2.Clone()
}

// Strategy returns the hull collision test in use.
func (m *Session) Strategy() collision.Strategy { return m.strategy }

// Events drains the event log.
func (m *Session) Events() []core.Event { return m.events.Drain() }
