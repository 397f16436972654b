package handlers

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/harborlab/shipsim/internal/api"
	"github.com/harborlab/shipsim/internal/collision"
	"github.com/harborlab/shipsim/internal/dispatcher"
	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/influx"
	"github.com/harborlab/shipsim/internal/parser"
	"github.com/harborlab/shipsim/internal/risk"
	"github.com/harborlab/shipsim/internal/session"
	"github.com/harborlab/shipsim/internal/storage"
	"github.com/harborlab/shipsim/internal/swarm"
	"github.com/harborlab/shipsim/internal/util"
	"github.com/harborlab/shipsim/internal/worker"
	"github.com/harborlab/shipsim/internal/worldmap"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
)

// Commands served by the service.
const (
	CmdSwarmRun     = ":SWARM:RUN:"
	CmdSwarmBatch   = ":SWARM:BATCH:"
	CmdRunLoad      = ":RUN:LOAD:"
	CmdSessionNew   = ":SESSION:NEW:"
	CmdSessionStep  = ":SESSION:STEP:"
	CmdSessionClear = ":SESSION:CLEAR:"
	CmdSessionSave  = ":SESSION:SAVE:"
	CmdSessionLoad  = ":SESSION:LOAD:"
	CmdSessionClose = ":SESSION:CLOSE:"
	CmdRisk         = ":RISK:"
	CmdVersion      = ":VERSION:"
	CmdGeoTrack     = ":GEO:TRACK:"
	CmdMetric       = ":METRIC:"
)

// Uploader pushes an exported run file to the viewer.
type Uploader interface {
	Upload(ctx context.Context, path string, meta api.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers. Runs, Metrics,
// Uploader and Reference are optional.
type Dependencies struct {
	Parser    *parser.Parser
	Sessions  *session.Registry
	Runs      storage.RunRecorder
	Metrics   *influx.Manager
	Uploader  Uploader // only used when Runs exports files
	Reference *geo.Reference
	Strategy  collision.Strategy // swarm pair test, nil for the default
	Logger    zerolog.Logger

	Version   string
	BuildDate string
	Timeout   time.Duration // per-command deadline, zero for none
}

// SwarmSummary is returned by :SWARM:RUN:.
type SwarmSummary struct {
	RunID      string          `json:"runId"`
	Seed       int64           `json:"seed"`
	Shape      [3]int          `json:"shape"`
	Arrived    int             `json:"arrived"`
	EndSteps   []int           `json:"endSteps"`
	Collisions int             `json:"collisions"`
	Export     string          `json:"export,omitempty"`
	Uploaded   bool            `json:"uploaded,omitempty"`
	Record     *core.RunRecord `json:"-"`
}

// BatchSummary is returned by :SWARM:BATCH:.
type BatchSummary struct {
	Seed    int64        `json:"seed"`
	Workers int          `json:"workers"`
	Stats   worker.Stats `json:"stats"`
}

// ReplaySummary is returned by :RUN:LOAD:.
type ReplaySummary struct {
	RunID      string         `json:"runId"`
	Label      string         `json:"label"`
	Seed       int64          `json:"seed"`
	StartedAt  time.Time      `json:"startedAt"`
	Shape      [3]int         `json:"shape"`
	Arrived    int            `json:"arrived"`
	EndSteps   []int          `json:"endSteps"`
	Collisions int            `json:"collisions"`
	Events     int            `json:"events"`
	Cells      map[string]int `json:"cells,omitempty"` // terrain tag counts
}

// outcome counts arrivals and collisions of a record.
func outcome(rec *core.SimulationRecord) (arrived, collisions int) {
	for _, end := range rec.EndSteps {
		if end != core.NotReached {
			arrived++
		}
	}
	for _, ev := range rec.Events {
		if ev.Kind == core.EventPairCollision || ev.Kind == core.EventTerrainCollision {
			collisions++
		}
	}
	return arrived, collisions
}

// Service provides handler methods for the simulation commands.
type Service struct {
	deps Dependencies
	now  func() time.Time
}

// NewService creates a new handler service.
func NewService(deps Dependencies) *Service {
	return &Service{deps: deps, now: time.Now}
}

func (s *Service) context() (context.Context, context.CancelFunc) {
	if s.deps.Timeout > 0 {
		return context.WithTimeout(context.Background(), s.deps.Timeout)
	}
	return context.WithCancel(context.Background())
}

// Register registers every command on d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdSwarmRun, func(e dispatcher.Event) (any, error) {
		return s.RunSwarm(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdSwarmBatch, func(e dispatcher.Event) (any, error) {
		return s.RunBatch(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdRunLoad, func(e dispatcher.Event) (any, error) {
		return s.LoadRun(e.Args)
	}, dispatcher.Logged())

	d.Register(CmdSessionNew, func(e dispatcher.Event) (any, error) {
		st, err := s.NewSession(e.Args)
		if err != nil {
			return nil, err
		}
		return st.ID, nil
	}, dispatcher.Logged())
	d.Register(CmdSessionStep, func(e dispatcher.Event) (any, error) {
		return s.StepSession(e.Args)
	})
	d.Register(CmdSessionClear, func(e dispatcher.Event) (any, error) {
		return s.ClearSession(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdSessionSave, func(e dispatcher.Event) (any, error) {
		return s.SaveSession(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdSessionLoad, func(e dispatcher.Event) (any, error) {
		return s.LoadSession(e.Args)
	}, dispatcher.Logged())
	d.Register(CmdSessionClose, func(e dispatcher.Event) (any, error) {
		return s.CloseSession(e.Args)
	}, dispatcher.Logged())

	d.Register(CmdRisk, func(e dispatcher.Event) (any, error) {
		return s.Risk(e.Args)
	})
	d.Register(CmdVersion, func(e dispatcher.Event) (any, error) {
		return []string{s.deps.Version, s.deps.BuildDate}, nil
	})
	d.Register(CmdGeoTrack, func(e dispatcher.Event) (any, error) {
		return s.GeoTrack(e.Args)
	})

	if s.deps.Metrics != nil {
		d.Register(CmdMetric, func(e dispatcher.Event) (any, error) {
			return nil, s.Metric(e.Args)
		}, dispatcher.Buffered(1000), dispatcher.Blocking())
	}
}

// RunSwarm parses [ships, weather, class, speed, seed?, terrain?], runs the
// swarm and hands the finished run to the recorders.
func (s *Service) RunSwarm(args []string) (SwarmSummary, error) {
	req, err := s.deps.Parser.ParseSwarm(args)
	if err != nil {
		return SwarmSummary{}, err
	}
	seed := req.Seed
	if !req.Seeded {
		seed = s.now().UnixNano()
	}

	log := s.deps.Logger.With().Int64("seed", seed).Logger()
	sim, err := swarm.New(req.Config, rand.New(rand.NewSource(seed)),
		swarm.WithLogger(log), swarm.WithStrategy(s.deps.Strategy))
	if err != nil {
		return SwarmSummary{}, err
	}

	ctx, cancel := s.context()
	defer cancel()

	startedAt := s.now()
	rec, err := sim.Run(ctx)
	if err != nil {
		return SwarmSummary{}, err
	}

	runID := uuid.NewString()
	label := fmt.Sprintf("%s_%s_%d", req.Config.Terrain, req.Config.Weather, req.Config.Ships)
	run := sim.RunRecord(runID, label, seed, startedAt, rec)

	summary := SwarmSummary{
		RunID:    runID,
		Seed:     seed,
		Shape:    rec.Shape(),
		EndSteps: append([]int(nil), rec.EndSteps...),
		Record:   run,
	}
	summary.Arrived, summary.Collisions = outcome(rec)

	var errs []error
	if s.deps.Runs != nil {
		if err := s.deps.Runs.RecordRun(ctx, run); err != nil {
			errs = append(errs, fmt.Errorf("record run: %w", err))
		}
		if e, ok := s.deps.Runs.(storage.Exporter); ok {
			summary.Export = e.LastExportPath()
		}
	}
	if s.deps.Uploader != nil && summary.Export != "" {
		if err := s.deps.Uploader.Upload(ctx, summary.Export, api.MetadataFor(run)); err != nil {
			s.deps.Logger.Warn().Err(err).Str("run", runID).Msg("Failed to upload run")
		} else {
			summary.Uploaded = true
		}
	}
	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.RecordRun(ctx, run); err != nil {
			s.deps.Logger.Warn().Err(err).Str("run", runID).Msg("Failed to write run metrics")
		}
	}

	log.Info().
		Str("run", runID).
		Int("arrived", summary.Arrived).
		Int("collisions", summary.Collisions).
		Msg("swarm run finished")

	return summary, errors.Join(errs...)
}

// RunBatch parses [runs, workers, swarm args...] and runs the swarm once per
// consecutive seed on a worker pool. Runs are not recorded individually.
func (s *Service) RunBatch(args []string) (BatchSummary, error) {
	req, err := s.deps.Parser.ParseBatch(args)
	if err != nil {
		return BatchSummary{}, err
	}
	seed := req.Seed
	if !req.Seeded {
		seed = s.now().UnixNano()
	}

	log := s.deps.Logger.With().Int64("seed", seed).Int("runs", req.Runs).Logger()
	pool := worker.NewManager(req.Workers,
		worker.SwarmRunner(swarm.WithStrategy(s.deps.Strategy)), log)

	ctx, cancel := s.context()
	defer cancel()

	results, err := pool.Run(ctx, worker.Jobs(req.Config, seed, req.Runs))
	if err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{Seed: seed, Workers: pool.Workers(), Stats: worker.Summarize(results)}
	log.Info().
		Int("failed", summary.Stats.Failed).
		Float64("arrivalRate", summary.Stats.ArrivalRate).
		Int("collisions", summary.Stats.Collisions).
		Msg("swarm batch finished")

	return summary, nil
}

// LoadRun parses [runId] and summarises the run read back from the recorder.
func (s *Service) LoadRun(args []string) (ReplaySummary, error) {
	args = util.CleanArgs(args)
	if len(args) != 1 {
		return ReplaySummary{}, fmt.Errorf("%w: run load takes 1 argument, got %d", parser.ErrBadArgs, len(args))
	}
	loader, ok := s.deps.Runs.(storage.RunLoader)
	if !ok {
		return ReplaySummary{}, fmt.Errorf("%w: run recorder cannot load runs", core.ErrRecordUnavailable)
	}

	ctx, cancel := s.context()
	defer cancel()
	run, err := loader.LoadRun(ctx, args[0])
	if err != nil {
		return ReplaySummary{}, err
	}

	rec := run.Record
	summary := ReplaySummary{
		RunID:     run.ID,
		Label:     run.Label,
		Seed:      run.Seed,
		StartedAt: run.StartedAt,
		Shape:     rec.Shape(),
		EndSteps:  append([]int(nil), rec.EndSteps...),
		Events:    len(rec.Events),
	}
	summary.Arrived, summary.Collisions = outcome(rec)
	if len(run.MapCells) > 0 {
		grid, err := worldmap.FromCells(run.MapSize, run.MapCells)
		if err != nil {
			return ReplaySummary{}, fmt.Errorf("run %s map: %w", run.ID, err)
		}
		summary.Cells = make(map[string]int)
		for tag, n := range grid.Counts() {
			summary.Cells[tag.String()] = n
		}
	}
	return summary, nil
}

// NewSession parses [scenario json?] and opens a session.
func (s *Service) NewSession(args []string) (session.State, error) {
	args = util.CleanArgs(args)
	if len(args) > 1 {
		return session.State{}, fmt.Errorf("%w: session new takes at most 1 argument, got %d", parser.ErrBadArgs, len(args))
	}
	if raw := util.Arg(args, 0); raw != "" {
		sc, err := s.deps.Parser.ParseScenario(raw)
		if err != nil {
			return session.State{}, err
		}
		return s.deps.Sessions.New(&sc)
	}
	return s.deps.Sessions.New(nil)
}

// StepSession parses [id] and advances the session by one step.
func (s *Service) StepSession(args []string) (session.State, error) {
	req, err := s.deps.Parser.ParseSession(args, false)
	if err != nil {
		return session.State{}, err
	}
	return s.deps.Sessions.Step(req.ID, 1)
}

// ClearSession parses [id] and resets the session.
func (s *Service) ClearSession(args []string) (session.State, error) {
	req, err := s.deps.Parser.ParseSession(args, false)
	if err != nil {
		return session.State{}, err
	}
	return s.deps.Sessions.Clear(req.ID)
}

// SaveSession parses [id, name?] and returns the record name written.
func (s *Service) SaveSession(args []string) (string, error) {
	req, err := s.deps.Parser.ParseSession(args, true)
	if err != nil {
		return "", err
	}
	ctx, cancel := s.context()
	defer cancel()
	return s.deps.Sessions.Save(ctx, req.ID, req.Name)
}

// LoadSession parses [id, name?] and restores the session from the record.
func (s *Service) LoadSession(args []string) (session.State, error) {
	req, err := s.deps.Parser.ParseSession(args, true)
	if err != nil {
		return session.State{}, err
	}
	ctx, cancel := s.context()
	defer cancel()
	return s.deps.Sessions.Load(ctx, req.ID, req.Name)
}

// CloseSession parses [id] and drops the session.
func (s *Service) CloseSession(args []string) (string, error) {
	req, err := s.deps.Parser.ParseSession(args, false)
	if err != nil {
		return "", err
	}
	if err := s.deps.Sessions.Close(req.ID); err != nil {
		return "", err
	}
	return "ok", nil
}

// Risk parses [weather, class, speed] and scores the conditions.
func (s *Service) Risk(args []string) (risk.Assessment, error) {
	req, err := s.deps.Parser.ParseRisk(args)
	if err != nil {
		return risk.Assessment{}, err
	}
	return risk.Assess(req.Weather, req.Class, req.Speed)
}

// GeoTrack parses [track json] and returns the track as lon/lat WKT.
func (s *Service) GeoTrack(args []string) (string, error) {
	if s.deps.Reference == nil {
		return "", fmt.Errorf("no georeference configured")
	}
	args = util.CleanArgs(args)
	if len(args) != 1 {
		return "", fmt.Errorf("%w: geo track takes 1 argument, got %d", parser.ErrBadArgs, len(args))
	}
	track, err := geo.ParseTrack(args[0])
	if err != nil {
		return "", err
	}
	ls, err := s.deps.Reference.TrackLonLat(track)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}

// Metric parses [bucket, measurement, tag::..., field::...] and writes the
// point.
func (s *Service) Metric(args []string) error {
	if s.deps.Metrics == nil {
		return fmt.Errorf("metrics are disabled")
	}
	bucket, point, err := influx.ParseMetric(args, func(v string) string {
		return util.FixEscapeQuotes(util.TrimQuotes(v))
	})
	if err != nil {
		return err
	}
	return s.deps.Metrics.WritePoint(bucket, point)
}
