package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harborlab/shipsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, format string) *Store {
	t.Helper()
	s, err := New(Config{Dir: filepath.Join(t.TempDir(), "scenarios"), Format: format})
	require.NoError(t, err)
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNew_Format(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			s, err := New(Config{Format: tt.format})
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.format)
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			s := newStore(t, format)
			ctx := context.Background()

			want := core.DefaultScenario()
			want.Ship1.X = 1.25
			want.Ship2.VY = -0.5
			want.TurnDirection = core.TurnRight

			require.NoError(t, s.SaveScenario(ctx, "ship_state", want))
			got, err := s.LoadScenario(ctx, "ship_state")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSave_Overwrites(t *testing.T) {
	s := newStore(t, FormatJSON)
	ctx := context.Background()

	first := core.DefaultScenario()
	second := core.DefaultScenario()
	second.TurnDistance = 9

	require.NoError(t, s.SaveScenario(ctx, "a", first))
	require.NoError(t, s.SaveScenario(ctx, "a", second))

	got, err := s.LoadScenario(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 9.0, got.TurnDistance)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSave_JSONSchema(t *testing.T) {
	s := newStore(t, FormatJSON)
	require.NoError(t, s.SaveScenario(context.Background(), "ship_state", core.DefaultScenario()))

	path, err := s.Path("ship_state")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"ship1": {"x": 0, "y": 0, "vx": 1, "vy": 0, "length": 4, "width": 2},
		"ship2": {"x": 10, "y": 0, "vx": -1, "vy": 0, "length": 4, "width": 2},
		"turn_distance": 5,
		"turn_direction": "left"
	}`, string(data))
}

func TestLoad_Missing(t *testing.T) {
	s := newStore(t, FormatJSON)
	_, err := s.LoadScenario(context.Background(), "never_saved")
	assert.ErrorIs(t, err, core.ErrRecordUnavailable)
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		format string
		doc    string
	}{
		{"truncated json", FormatJSON, `{"ship1": {`},
		{"missing ship", FormatJSON, `{"ship1": {"x":0,"y":0,"vx":0,"vy":0,"length":1,"width":1}, "turn_distance": 1, "turn_direction": "left"}`},
		{"bad direction", FormatJSON, `{"ship1": {"x":0,"y":0,"vx":0,"vy":0,"length":1,"width":1}, "ship2": {"x":0,"y":0,"vx":0,"vy":0,"length":1,"width":1}, "turn_distance": 1, "turn_direction": "north"}`},
		{"yaml wrong type", FormatYAML, "ship1: 3\nship2: {}\nturn_distance: 1\nturn_direction: left\n"},
		{"yaml empty", FormatYAML, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, tt.format)
			path, err := s.Path("broken")
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, []byte(tt.doc), 0644))

			_, err = s.LoadScenario(context.Background(), "broken")
			assert.ErrorIs(t, err, core.ErrMalformedScenario)
		})
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	s := newStore(t, FormatJSON)
	ctx := context.Background()

	bad := core.DefaultScenario()
	bad.Ship1.Length = 0
	assert.ErrorIs(t, s.SaveScenario(ctx, "x", bad), core.ErrInvalidConfiguration)

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, s.SaveScenario(ctx, name, core.DefaultScenario()), core.ErrInvalidConfiguration, name)
	}
}

func TestCancelledContext(t *testing.T) {
	s := newStore(t, FormatJSON)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SaveScenario(ctx, "x", core.DefaultScenario()), context.Canceled)
	_, err := s.LoadScenario(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
