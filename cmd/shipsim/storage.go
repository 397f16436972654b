package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func initStorage(cfg config.StorageConfig, log zerolog.Logger, ref *geo.Reference, start time.Time) (*storage.Set, error) {
	switch cfg.Type {
	case storage.TypeSQLite:
		// an in-memory database is only kept if it is dumped somewhere
		if cfg.SQLite.Path == "" && cfg.SQLite.DumpPath == "" {
			cfg.SQLite.DumpPath = filepath.Join(viper.GetString("logsDir"),
				fmt.Sprintf("%s_%s.db", AppName, start.Format("20060102_150405")))
		}
	case storage.TypeWebSocket:
		cfg.WebSocket.URL = httpToWS(cfg.WebSocket.URL)
	}

	set, err := storage.NewBackend(cfg, log, ref)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create storage backend")
		return nil, err
	}
	if err := set.Init(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize storage backend")
		return nil, err
	}
	log.Info().Str("type", cfg.Type).Msg("Storage backend initialized")
	return set, nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL. Other URLs are
// returned without the trailing slash.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
