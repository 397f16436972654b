package storage

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/storage/file"
	"github.com/harborlab/shipsim/internal/storage/memory"
	pgstorage "github.com/harborlab/shipsim/internal/storage/postgres"
	sqlitestorage "github.com/harborlab/shipsim/internal/storage/sqlite"
	"github.com/harborlab/shipsim/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// Backend types accepted in storage.type.
const (
	TypeFile      = "file"
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
)

type lifecycle interface {
	Init() error
	Close() error
}

// Set pairs the scenario store with the run recorder. Both may be the same
// backend instance.
type Set struct {
	Scenarios ScenarioStore
	Runs      RunRecorder

	// distinct instances in Init order
	parts []lifecycle
}

// NewBackend creates the backends named by cfg.Type. ref, when non-nil,
// georeferences stored tracks.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger, ref *geo.Reference) (*Set, error) {
	switch cfg.Type {
	case TypeMemory:
		b := memory.New(cfg.Memory)
		return newSet(b, b), nil

	case "", TypeFile:
		fs, err := file.New(file.Config{Dir: cfg.File.Dir, Format: cfg.File.Format})
		if err != nil {
			return nil, err
		}
		return newSet(fs, memory.New(cfg.Memory)), nil

	case TypeSQLite:
		b, err := sqlitestorage.New(sqlitestorage.Config{
			Path:         cfg.SQLite.Path,
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, log, ref)
		if err != nil {
			return nil, err
		}
		return newSet(b, b), nil

	case TypePostgres:
		fallback := ""
		if cfg.File.Dir != "" {
			fallback = filepath.Join(cfg.File.Dir, "shipsim_fallback.db")
		}
		b, err := pgstorage.New(pgstorage.Dependencies{
			Config:       cfg.Postgres,
			FallbackPath: fallback,
			Logger:       log,
			Reference:    ref,
		})
		if err != nil {
			return nil, err
		}
		return newSet(b, b), nil

	case TypeWebSocket:
		fs, err := file.New(file.Config{Dir: cfg.File.Dir, Format: cfg.File.Format})
		if err != nil {
			return nil, err
		}
		ws := websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, log)
		return newSet(fs, ws), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func newSet(scenarios ScenarioStore, runs RunRecorder) *Set {
	s := &Set{Scenarios: scenarios, Runs: runs}
	s.parts = append(s.parts, scenarios)
	if lifecycle(runs) != lifecycle(scenarios) {
		s.parts = append(s.parts, runs)
	}
	return s
}

// Init initializes every distinct backend once. On failure the backends
// already initialized are closed again.
func (s *Set) Init() error {
	for i, p := range s.parts {
		if err := p.Init(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = s.parts[j].Close()
			}
			return err
		}
	}
	return nil
}

// Close closes every distinct backend once, in reverse Init order.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.parts) - 1; i >= 0; i-- {
		if err := s.parts[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ExportPath returns the last run file written by the recorder, or "" when
// the recorder does not write files.
func (s *Set) ExportPath() string {
	if e, ok := s.Runs.(Exporter); ok {
		return e.LastExportPath()
	}
	return ""
}
