// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/harborlab/shipsim/pkg/core"
)

// DefaultScenarioName is the record used when no name is given.
const DefaultScenarioName = "ship_state"

// ScenarioStore persists two-ship scenarios by name. Saving overwrites.
// LoadScenario wraps core.ErrRecordUnavailable for a name never saved and
// core.ErrMalformedScenario for a record that fails strict decoding.
type ScenarioStore interface {
	Init() error
	Close() error

	SaveScenario(ctx context.Context, name string, sc core.Scenario) error
	LoadScenario(ctx context.Context, name string) (core.Scenario, error)
}

// RunRecorder receives finished swarm runs.
type RunRecorder interface {
	Init() error
	Close() error

	RecordRun(ctx context.Context, run *core.RunRecord) error
}

// Exporter is an optional interface for recorders that write run files.
type Exporter interface {
	LastExportPath() string
}

// RunLoader is an optional interface for recorders that can read a run back.
// LoadRun wraps core.ErrRecordUnavailable for an unknown or evicted run.
type RunLoader interface {
	LoadRun(ctx context.Context, runID string) (*core.RunRecord, error)
}
