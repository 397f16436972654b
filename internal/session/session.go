// Package session keeps the live two-ship maneuver sessions. Every session
// has its own lock, so steps on one session never overlap while different
// sessions run independently.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harborlab/shipsim/internal/collision"
	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/maneuver"
	"github.com/harborlab/shipsim/internal/storage"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
)

// ErrUnknownSession is returned for ids that were never created or are closed.
var ErrUnknownSession = errors.New("unknown session")

// State is the externally visible state of one session.
type State struct {
	ID        string        `json:"id"`
	Step      int           `json:"step"`
	Distance  float64       `json:"distance"`
	Turned    bool          `json:"turned"`
	Collision bool          `json:"collision"`
	Scenario  core.Scenario `json:"scenario"`
	Events    []core.Event  `json:"events,omitempty"`
}

type entry struct {
	mu      sync.Mutex
	m       *maneuver.Session
	seq     uint64
	created time.Time
}

// Registry owns the sessions and the scenario store they save to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	nextSeq  uint64

	store    storage.ScenarioStore
	defaults config.ManeuverConfig
	strategy collision.Strategy
	name     string
	log      zerolog.Logger
}

// NewRegistry resolves the configured collision strategy. defaultName is the
// record used by Save and Load when no name is given.
func NewRegistry(defaults config.ManeuverConfig, store storage.ScenarioStore, defaultName string, log zerolog.Logger) (*Registry, error) {
	strategy, err := collision.Parse(defaults.Strategy, collision.ModeManeuver, 0)
	if err != nil {
		return nil, err
	}
	if defaultName == "" {
		defaultName = storage.DefaultScenarioName
	}
	return &Registry{
		sessions: make(map[string]*entry),
		store:    store,
		defaults: defaults,
		strategy: strategy,
		name:     defaultName,
		log:      log,
	}, nil
}

// New creates a session from sc, or from the configured scenario when sc is
// nil, and returns its id.
func (r *Registry) New(sc *core.Scenario) (State, error) {
	initial := r.defaults.Scenario
	if sc != nil {
		initial = *sc
	}

	id := uuid.NewString()
	m, err := maneuver.New(initial,
		maneuver.WithStrategy(r.strategy),
		maneuver.WithDt(r.defaults.Dt),
		maneuver.WithRetrigger(r.defaults.Retrigger),
		maneuver.WithEventLimit(r.defaults.EventLimit),
		maneuver.WithLogger(r.log.With().Str("session", id).Logger()),
	)
	if err != nil {
		return State{}, err
	}

	e := &entry{m: m, created: time.Now()}
	r.mu.Lock()
	r.nextSeq++
	e.seq = r.nextSeq
	r.sessions[id] = e
	r.mu.Unlock()

	r.log.Debug().Str("session", id).Msg("session created")
	return state(id, m), nil
}

func (r *Registry) get(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return e, nil
}

func state(id string, m *maneuver.Session) State {
	return State{
		ID:        id,
		Step:      m.StepCount(),
		Collision: m.Collision(),
		Scenario:  m.Snapshot(),
	}
}

// Step advances the session by n steps (at least one) and returns the state
// after the last step with the events raised on the way.
func (r *Registry) Step(id string, n int) (State, error) {
	e, err := r.get(id)
	if err != nil {
		return State{}, err
	}
	if n < 1 {
		n = 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var res maneuver.StepResult
	turned := false
	for i := 0; i < n; i++ {
		res = e.m.Step()
		turned = turned || res.Turned
	}
	st := state(id, e.m)
	st.Distance = res.Distance
	st.Turned = turned
	st.Events = e.m.Events()
	return st, nil
}

// Age returns how long the session has been open.
func (r *Registry) Age(id string) (time.Duration, error) {
	e, err := r.get(id)
	if err != nil {
		return 0, err
	}
	return time.Since(e.created), nil
}

// Get returns the current state without stepping.
func (r *Registry) Get(id string) (State, error) {
	e, err := r.get(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return state(id, e.m), nil
}

// Clear resets the session to the scenario it was created with.
func (r *Registry) Clear(id string) (State, error) {
	e, err := r.get(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.m.Reset(); err != nil {
		return State{}, err
	}
	return state(id, e.m), nil
}

// Save writes the live state under name, or the default record name.
func (r *Registry) Save(ctx context.Context, id, name string) (string, error) {
	e, err := r.get(id)
	if err != nil {
		return "", err
	}
	if name == "" {
		name = r.name
	}

	e.mu.Lock()
	snap := e.m.Snapshot()
	e.mu.Unlock()

	if err := r.store.SaveScenario(ctx, name, snap); err != nil {
		return "", fmt.Errorf("save session %s: %w", id, err)
	}
	r.log.Info().Str("session", id).Str("name", name).Msg("scenario saved")
	return name, nil
}

// Load replaces the live state with the record saved under name. The session
// is unchanged when the record is missing or malformed.
func (r *Registry) Load(ctx context.Context, id, name string) (State, error) {
	e, err := r.get(id)
	if err != nil {
		return State{}, err
	}
	if name == "" {
		name = r.name
	}

	sc, err := r.store.LoadScenario(ctx, name)
	if err != nil {
		return State{}, fmt.Errorf("load session %s: %w", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.m.Restore(sc); err != nil {
		return State{}, fmt.Errorf("load session %s: %w", id, err)
	}
	r.log.Info().Str("session", id).Str("name", name).Msg("scenario loaded")
	return state(id, e.m), nil
}

// Close removes the session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	r.log.Debug().Str("session", id).Msg("session closed")
	return nil
}

// IDs returns the open session ids, oldest first.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.sessions[ids[i]].seq < r.sessions[ids[j]].seq
	})
	return ids
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
