package pgstorage

import (
	"context"
	"testing"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FallsBackToSQLite(t *testing.T) {
	b, err := New(Dependencies{
		Config: config.PostgresConfig{
			Host:     "127.0.0.1",
			Port:     "1",
			Username: "postgres",
			Password: "postgres",
			Database: "shipsim",
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.True(t, b.Local())

	ctx := context.Background()
	require.NoError(t, b.SaveScenario(ctx, "ship_state", core.DefaultScenario()))
	got, err := b.LoadScenario(ctx, "ship_state")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultScenario(), got)
}
