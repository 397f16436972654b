package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/util"
	"github.com/harborlab/shipsim/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun() *core.RunRecord {
	rec := core.NewSimulationRecord(0.5, 2,
		[]core.Vec2{{X: 10, Y: 10}, {X: 20, Y: 20}},
		[]core.Vec2{{X: 11, Y: 10}, {X: 50, Y: 50}})
	rec.Append([]core.Vec2{{X: 10.5, Y: 10}, {X: 21, Y: 21}})
	rec.Append([]core.Vec2{{X: 11, Y: 10}, {X: 22, Y: 22}})
	rec.EndSteps[0] = 2
	rec.Events = []core.Event{
		{Kind: core.EventTerrainCollision, Step: 0, Ship: 1, Other: -1},
		{Kind: core.EventArrival, Step: 2, Ship: 0, Other: -1},
	}
	return &core.RunRecord{
		ID:        "run-1",
		Label:     "harbour",
		StartedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Seed:      42,
		Config:    core.DefaultSwarmConfig(),
		Record:    rec,
	}
}

func lineProtocol(p *influxdb2_write.Point) string {
	return influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
}

func TestRunPoints(t *testing.T) {
	points, err := RunPoints(testRun())
	require.NoError(t, err)
	require.Len(t, points, 2)

	summary := lineProtocol(points[0])
	assert.True(t, strings.HasPrefix(summary, MeasurementRun+","), summary)
	assert.Contains(t, summary, "label=harbour")
	assert.Contains(t, summary, "run=run-1")
	assert.Contains(t, summary, "arrived=1i")
	assert.Contains(t, summary, "terrain_collisions=1i")
	assert.Contains(t, summary, "pair_collisions=0i")
	assert.Contains(t, summary, "steps=2i")
	assert.Contains(t, summary, "mean_arrival_time=1")
	assert.Contains(t, summary, "risk_probability=")

	arrival := lineProtocol(points[1])
	assert.True(t, strings.HasPrefix(arrival, MeasurementArrival+","), arrival)
	assert.Contains(t, arrival, "vessel=0")
	assert.Contains(t, arrival, "end_step=2i")
}

func TestRunPoints_NoArrivals(t *testing.T) {
	run := testRun()
	run.Record.EndSteps[0] = core.NotReached

	points, err := RunPoints(run)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.NotContains(t, lineProtocol(points[0]), "mean_arrival_time")
}

func TestRunPoints_NoRecord(t *testing.T) {
	_, err := RunPoints(&core.RunRecord{ID: "x"})
	assert.Error(t, err)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: false}, zerolog.Nop())
	assert.Error(t, m.Connect(context.Background()))
}

func TestRecordRun_BackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "logs", "influx_backup.lp.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "shipsim",
		Bucket:   "runs",
		Backup:   backup,
	}, zerolog.Nop())

	require.NoError(t, m.Init())
	assert.False(t, m.IsValid)
	require.NoError(t, m.RecordRun(context.Background(), testRun()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], MeasurementRun))
	assert.True(t, strings.HasPrefix(lines[1], MeasurementArrival))
}

func TestWritePoint_NotInitialized(t *testing.T) {
	m := NewManager(config.InfluxConfig{Bucket: "runs"}, zerolog.Nop())
	err := m.WritePoint("runs", influxdb2_write.NewPointWithMeasurement("x"))
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	clean := func(s string) string { return util.FixEscapeQuotes(util.TrimQuotes(s)) }

	bucket, point, err := ParseMetric([]string{
		`"runs"`, `"session_step"`,
		`"tag::session::abc"`,
		`"field::int::step::12"`,
		`"field::float::separation::3.5"`,
		`"field::string::state::turning"`,
		`"ignored"`,
	}, clean)
	require.NoError(t, err)
	assert.Equal(t, "runs", bucket)

	lp := lineProtocol(point)
	assert.True(t, strings.HasPrefix(lp, "session_step,session=abc "), lp)
	assert.Contains(t, lp, "step=12i")
	assert.Contains(t, lp, "separation=3.5")
	assert.Contains(t, lp, `state="turning"`)
}

func TestParseMetric_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"runs"}},
		{"bad int", []string{"runs", "m", "field::int::n::x"}},
		{"bad float", []string{"runs", "m", "field::float::f::x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseMetric(tt.args, util.TrimQuotes)
			assert.Error(t, err)
		})
	}
}
