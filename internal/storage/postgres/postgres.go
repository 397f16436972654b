// Package pgstorage wraps the GORM backend with a Postgres connection. When
// the server cannot be reached it falls back to a local SQLite database so
// scenarios and runs are never lost.
package pgstorage

import (
	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/database"
	"github.com/harborlab/shipsim/internal/geo"
	gormstorage "github.com/harborlab/shipsim/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Dependencies holds the collaborators of the backend.
type Dependencies struct {
	Config       config.PostgresConfig
	FallbackPath string // SQLite file used when Postgres is down, empty for in-memory
	Logger       zerolog.Logger
	Reference    *geo.Reference
}

// Backend is the GORM backend on Postgres.
type Backend struct {
	*gormstorage.Backend
	local bool
}

// New connects to Postgres, or to the fallback database.
func New(deps Dependencies) (*Backend, error) {
	db, local, err := database.Connect(deps.Config, deps.FallbackPath, deps.Logger)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:        db,
			Logger:    deps.Logger,
			Reference: deps.Reference,
		}),
		local: local,
	}, nil
}

// Local reports whether the SQLite fallback is in use.
func (b *Backend) Local() bool {
	return b.local
}
