package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/harborlab/shipsim/internal/dispatcher"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		log       func(*DispatcherLogger)
		wantLevel string
		wantMsg   string
		wantKey   string
		wantValue any
	}{
		{
			name:      "debug",
			log:       func(l *DispatcherLogger) { l.Debug("handling event", "command", ":SESSION:STEP:", "args", 1) },
			wantLevel: "debug",
			wantMsg:   "handling event",
			wantKey:   "args",
			wantValue: float64(1),
		},
		{
			name:      "info",
			log:       func(l *DispatcherLogger) { l.Info("session opened", "session", "abc") },
			wantLevel: "info",
			wantMsg:   "session opened",
			wantKey:   "session",
			wantValue: "abc",
		},
		{
			name:      "error",
			log:       func(l *DispatcherLogger) { l.Error("event failed", "error", errors.New("boom")) },
			wantLevel: "error",
			wantMsg:   "event failed",
			wantKey:   "error",
			wantValue: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

			tt.log(dl)

			entry := decode(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.wantMsg, entry["message"])
			assert.Equal(t, tt.wantValue, entry[tt.wantKey])
		})
	}
}

func TestDispatcherLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("odd", "key", "value", 42, "skipped", "dangling")

	entry := decode(t, &buf)
	assert.Equal(t, "value", entry["key"])
	assert.NotContains(t, entry, "dangling")
}

func TestDispatcherLogger_ImplementsInterface(t *testing.T) {
	var _ dispatcher.Logger = NewDispatcherLogger(zerolog.Nop())
}
