package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPToWS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:5000/api", "ws://localhost:5000/api"},
		{"https://viewer.example.com/api/", "wss://viewer.example.com/api"},
		{"ws://localhost:5000/api", "ws://localhost:5000/api"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in))
	}
}

func TestInitStorage_SQLiteDumpPath(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("logsDir", t.TempDir())

	set, err := initStorage(config.StorageConfig{Type: storage.TypeSQLite}, zerolog.Nop(), nil,
		time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, set.Close())

	// the final dump on close lands in the logs dir
	assert.FileExists(t, filepath.Join(viper.GetString("logsDir"), "shipsim_20240115_103000.db"))
}

func TestInitStorage_Unknown(t *testing.T) {
	_, err := initStorage(config.StorageConfig{Type: "tape"}, zerolog.Nop(), nil, time.Now())
	assert.Error(t, err)
}
