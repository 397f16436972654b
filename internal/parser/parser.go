// Package parser converts raw command arguments into simulation inputs.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/harborlab/shipsim/internal/util"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
)

// ErrBadArgs is returned when the argument list has the wrong shape.
var ErrBadArgs = errors.New("bad arguments")

// parseIntFromFloat parses a string that may be an integer ("3") or a whole
// float ("3.0") into int64. Clients that only speak floats send the latter.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// SwarmRequest is a parsed :SWARM:RUN: invocation.
type SwarmRequest struct {
	Config core.SwarmConfig
	Seed   int64
	Seeded bool
}

// BatchRequest is a parsed :SWARM:BATCH: invocation.
type BatchRequest struct {
	SwarmRequest
	Runs    int
	Workers int
}

// RiskRequest is a parsed :RISK: invocation.
type RiskRequest struct {
	Weather core.Weather
	Class   core.VesselClass
	Speed   float64
}

// SessionRequest addresses one maneuver session and, for save and load, a
// scenario record name.
type SessionRequest struct {
	ID   string
	Name string
}

// DefaultMaxBatchRuns caps the run count of one batch.
const DefaultMaxBatchRuns = 1000

// Parser provides pure []string -> request conversion.
type Parser struct {
	logger       zerolog.Logger
	defaults     core.SwarmConfig
	maxBatchRuns int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxBatchRuns caps the run count ParseBatch accepts. n < 1 keeps the
// default.
func WithMaxBatchRuns(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxBatchRuns = n
		}
	}
}

// NewParser creates a parser. Omitted swarm arguments fall back to defaults.
func NewParser(logger zerolog.Logger, defaults core.SwarmConfig, opts ...Option) *Parser {
	p := &Parser{logger: logger, defaults: defaults, maxBatchRuns: DefaultMaxBatchRuns}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseSwarm parses [ships, weather, class, speed, seed?, terrain?].
// Empty positions keep the configured default. The result is validated.
func (p *Parser) ParseSwarm(args []string) (SwarmRequest, error) {
	args = util.CleanArgs(args)
	if len(args) > 6 {
		return SwarmRequest{}, fmt.Errorf("%w: swarm takes at most 6 arguments, got %d", ErrBadArgs, len(args))
	}

	req := SwarmRequest{Config: p.defaults}
	cfg := &req.Config

	if s := util.Arg(args, 0); s != "" {
		n, err := parseIntFromFloat(s)
		if err != nil {
			return SwarmRequest{}, fmt.Errorf("%w: ship count %q", core.ErrInvalidConfiguration, s)
		}
		cfg.Ships = int(n)
	}
	if s := util.Arg(args, 1); s != "" {
		w, err := core.ParseWeather(s)
		if err != nil {
			return SwarmRequest{}, err
		}
		cfg.Weather = w
	}
	if s := util.Arg(args, 2); s != "" {
		c, err := core.ParseVesselClass(s)
		if err != nil {
			return SwarmRequest{}, err
		}
		cfg.Class = c
	}
	if s := util.Arg(args, 3); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return SwarmRequest{}, fmt.Errorf("%w: speed %q", core.ErrInvalidConfiguration, s)
		}
		cfg.Speed = v
	}
	if s := util.Arg(args, 4); s != "" {
		seed, err := parseIntFromFloat(s)
		if err != nil {
			return SwarmRequest{}, fmt.Errorf("%w: seed %q", core.ErrInvalidConfiguration, s)
		}
		req.Seed, req.Seeded = seed, true
	}
	if s := util.Arg(args, 5); s != "" {
		t, err := core.ParseTerrain(s)
		if err != nil {
			return SwarmRequest{}, err
		}
		cfg.Terrain = t
	}

	if err := cfg.Validate(); err != nil {
		return SwarmRequest{}, err
	}

	p.logger.Debug().
		Int("ships", cfg.Ships).
		Str("weather", string(cfg.Weather)).
		Str("class", string(cfg.Class)).
		Float64("speed", cfg.Speed).
		Bool("seeded", req.Seeded).
		Msg("parsed swarm request")

	return req, nil
}

// ParseBatch parses [runs, workers, ships, weather, class, speed, seed?, terrain?].
// An empty workers position lets the pool pick one worker per CPU. Run counts
// above the configured maximum are rejected.
func (p *Parser) ParseBatch(args []string) (BatchRequest, error) {
	args = util.CleanArgs(args)
	if len(args) < 1 {
		return BatchRequest{}, fmt.Errorf("%w: batch needs a run count", ErrBadArgs)
	}

	runs, err := parseIntFromFloat(args[0])
	if err != nil || runs < 1 {
		return BatchRequest{}, fmt.Errorf("%w: run count %q", core.ErrInvalidConfiguration, args[0])
	}
	if runs > int64(p.maxBatchRuns) {
		return BatchRequest{}, fmt.Errorf("%w: run count %d exceeds %d", core.ErrInvalidConfiguration, runs, p.maxBatchRuns)
	}
	var workers int64
	if s := util.Arg(args, 1); s != "" {
		workers, err = parseIntFromFloat(s)
		if err != nil || workers < 0 {
			return BatchRequest{}, fmt.Errorf("%w: worker count %q", core.ErrInvalidConfiguration, s)
		}
	}

	var rest []string
	if len(args) > 2 {
		rest = args[2:]
	}
	req, err := p.ParseSwarm(rest)
	if err != nil {
		return BatchRequest{}, err
	}
	return BatchRequest{SwarmRequest: req, Runs: int(runs), Workers: int(workers)}, nil
}

// ParseRisk parses [weather, class, speed].
func (p *Parser) ParseRisk(args []string) (RiskRequest, error) {
	args = util.CleanArgs(args)
	if len(args) != 3 {
		return RiskRequest{}, fmt.Errorf("%w: risk takes 3 arguments, got %d", ErrBadArgs, len(args))
	}
	w, err := core.ParseWeather(args[0])
	if err != nil {
		return RiskRequest{}, err
	}
	c, err := core.ParseVesselClass(args[1])
	if err != nil {
		return RiskRequest{}, err
	}
	speed, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return RiskRequest{}, fmt.Errorf("%w: speed %q", core.ErrInvalidConfiguration, args[2])
	}
	return RiskRequest{Weather: w, Class: c, Speed: speed}, nil
}

// ParseScenario decodes a scenario document passed inline as JSON.
func (p *Parser) ParseScenario(raw string) (core.Scenario, error) {
	raw = util.FixEscapeQuotes(strings.TrimSpace(raw))
	sc, err := core.DecodeScenarioJSON([]byte(raw))
	if err != nil {
		return core.Scenario{}, err
	}
	if err := sc.Validate(); err != nil {
		return core.Scenario{}, err
	}
	return sc, nil
}

// ParseSession parses [id] or, when named is true, [id, name?].
func (p *Parser) ParseSession(args []string, named bool) (SessionRequest, error) {
	args = util.CleanArgs(args)
	limit := 1
	if named {
		limit = 2
	}
	if len(args) == 0 || len(args) > limit || args[0] == "" {
		return SessionRequest{}, fmt.Errorf("%w: want session id and up to %d more", ErrBadArgs, limit-1)
	}
	req := SessionRequest{ID: args[0]}
	if named {
		req.Name = util.Arg(args, 1)
		if strings.ContainsAny(req.Name, `/\`) || req.Name == "." || req.Name == ".." {
			return SessionRequest{}, fmt.Errorf("%w: invalid record name %q", ErrBadArgs, req.Name)
		}
	}
	return req, nil
}
