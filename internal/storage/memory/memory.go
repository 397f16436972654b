// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/pkg/core"
)

// DefaultRetainRuns is the number of runs kept when the configuration leaves
// RetainRuns unset.
const DefaultRetainRuns = 32

// Backend keeps scenarios and the latest runs in memory and exports runs to
// JSON.
type Backend struct {
	cfg config.MemoryConfig

	scenarios map[string]core.Scenario
	runs      []*core.RunRecord

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	if cfg.RetainRuns <= 0 {
		cfg.RetainRuns = DefaultRetainRuns
	}
	return &Backend{
		cfg:       cfg,
		scenarios: make(map[string]core.Scenario),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveScenario stores a copy of the scenario under name.
func (b *Backend) SaveScenario(ctx context.Context, name string, sc core.Scenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scenarios[name] = sc
	return nil
}

// LoadScenario returns the scenario saved under name.
func (b *Backend) LoadScenario(ctx context.Context, name string) (core.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return core.Scenario{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	sc, ok := b.scenarios[name]
	if !ok {
		return core.Scenario{}, fmt.Errorf("%w: %s", core.ErrRecordUnavailable, name)
	}
	return sc, nil
}

// RecordRun keeps the run, dropping the oldest beyond RetainRuns, and exports
// it when an output directory is configured.
func (b *Backend) RecordRun(ctx context.Context, run *core.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if run == nil || run.Record == nil {
		return fmt.Errorf("run has no record")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.runs = append(b.runs, run)
	if over := len(b.runs) - b.cfg.RetainRuns; over > 0 {
		clear(b.runs[:over])
		b.runs = append(b.runs[:0], b.runs[over:]...)
	}
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON(run)
}

// LoadRun returns a retained run by id.
func (b *Backend) LoadRun(ctx context.Context, runID string) (*core.RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := len(b.runs) - 1; i >= 0; i-- {
		if b.runs[i].ID == runID {
			return b.runs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: run %s", core.ErrRecordUnavailable, runID)
}

// Runs returns the retained runs, oldest first.
func (b *Backend) Runs() []*core.RunRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*core.RunRecord(nil), b.runs...)
}

// LastExportPath returns the file written by the latest export.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
