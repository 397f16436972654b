// Package gormstorage implements scenario storage and the run archive on any
// GORM dialect. The SQLite and Postgres packages wrap it.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborlab/shipsim/internal/database"
	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/model"
	"github.com/harborlab/shipsim/internal/model/convert"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds the collaborators of the backend.
type Dependencies struct {
	DB        *gorm.DB
	Logger    zerolog.Logger
	Reference *geo.Reference // optional, adds lon/lat paths to tracks
}

// Backend stores scenarios and runs through GORM.
type Backend struct {
	db  *gorm.DB
	ref *geo.Reference
	log zerolog.Logger
}

// New creates a backend around an open connection.
func New(deps Dependencies) *Backend {
	return &Backend{db: deps.DB, ref: deps.Reference, log: deps.Logger}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("no database connection")
	}
	return database.Setup(b.db)
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveScenario upserts the scenario row by name.
func (b *Backend) SaveScenario(ctx context.Context, name string, sc core.Scenario) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	row := convert.CoreToScenario(name, sc)
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"updated_at",
			"ship1_x", "ship1_y", "ship1_vx", "ship1_vy", "ship1_length", "ship1_width",
			"ship2_x", "ship2_y", "ship2_vx", "ship2_vy", "ship2_length", "ship2_width",
			"turn_distance", "turn_direction",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save scenario %q: %w", name, err)
	}
	return nil
}

// LoadScenario reads the scenario row by name.
func (b *Backend) LoadScenario(ctx context.Context, name string) (core.Scenario, error) {
	var row model.Scenario
	err := b.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.Scenario{}, fmt.Errorf("%w: %s", core.ErrRecordUnavailable, name)
		}
		return core.Scenario{}, fmt.Errorf("load scenario %q: %w", name, err)
	}
	return convert.ScenarioToCore(row)
}

// RecordRun stores the run with its tracks and events in one transaction.
func (b *Backend) RecordRun(ctx context.Context, run *core.RunRecord) error {
	row, err := convert.CoreToRun(run, b.ref)
	if err != nil {
		return err
	}

	start := time.Now()
	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	b.log.Debug().
		Str("run", run.ID).
		Int("tracks", len(row.Tracks)).
		Int("events", len(row.Events)).
		Dur("duration", time.Since(start)).
		Msg("Run archived")
	return nil
}

// LoadRun reads an archived run by its run id and rebuilds its record.
func (b *Backend) LoadRun(ctx context.Context, runID string) (*core.RunRecord, error) {
	row, err := b.loadRunRow(ctx, runID)
	if err != nil {
		return nil, err
	}
	return convert.RunToCore(row)
}

func (b *Backend) loadRunRow(ctx context.Context, runID string) (model.Run, error) {
	var row model.Run
	err := b.db.WithContext(ctx).
		Preload("Tracks", func(db *gorm.DB) *gorm.DB { return db.Order("vessel") }).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("uuid = ?", runID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Run{}, fmt.Errorf("%w: run %s", core.ErrRecordUnavailable, runID)
		}
		return model.Run{}, err
	}
	return row, nil
}
