// internal/storage/memory/memory_test.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(label string) *core.RunRecord {
	rec := core.NewSimulationRecord(0.1, 2,
		[]core.Vec2{{X: 10, Y: 10}, {X: 20, Y: 20}},
		[]core.Vec2{{X: 12, Y: 10}, {X: 50, Y: 50}})
	rec.Append([]core.Vec2{{X: 11, Y: 10}, {X: 21, Y: 21}})
	rec.Append([]core.Vec2{{X: 11.5, Y: 10}, {X: 22, Y: 22}})
	rec.EndSteps[0] = 1
	rec.Events = []core.Event{{Kind: core.EventArrival, Step: 1, Ship: 0, Other: -1, Position: core.Vec2{X: 11.5, Y: 10}}}

	return &core.RunRecord{
		ID:        "run-" + label,
		Label:     label,
		StartedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Seed:      7,
		Config:    core.DefaultSwarmConfig(),
		MapSize:   2,
		MapCells:  []core.CellType{core.CellCoastline, core.CellNone, core.CellIsland, core.CellShoal},
		Record:    rec,
	}
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NotNil(t, b)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestScenario_RoundTrip(t *testing.T) {
	b := New(config.MemoryConfig{})
	ctx := context.Background()

	want := core.DefaultScenario()
	want.Ship2.X = 7.5
	require.NoError(t, b.SaveScenario(ctx, "ship_state", want))

	got, err := b.LoadScenario(ctx, "ship_state")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestScenario_Missing(t *testing.T) {
	b := New(config.MemoryConfig{})
	_, err := b.LoadScenario(context.Background(), "ship_state")
	assert.ErrorIs(t, err, core.ErrRecordUnavailable)
}

func TestScenario_Invalid(t *testing.T) {
	b := New(config.MemoryConfig{})
	bad := core.DefaultScenario()
	bad.TurnDirection = "up"
	assert.ErrorIs(t, b.SaveScenario(context.Background(), "x", bad), core.ErrInvalidConfiguration)
}

func TestScenario_Concurrent(t *testing.T) {
	b := New(config.MemoryConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc := core.DefaultScenario()
			sc.TurnDistance = float64(i)
			_ = b.SaveScenario(ctx, "shared", sc)
			_, _ = b.LoadScenario(ctx, "shared")
		}(i)
	}
	wg.Wait()

	_, err := b.LoadScenario(ctx, "shared")
	assert.NoError(t, err)
}

func TestRecordRun_NoOutputDir(t *testing.T) {
	b := New(config.MemoryConfig{})

	require.NoError(t, b.RecordRun(context.Background(), testRun("a")))
	require.NoError(t, b.RecordRun(context.Background(), testRun("b")))

	runs := b.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].ID)
	assert.Empty(t, b.LastExportPath())
}

func TestRecordRun_NoRecord(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.Error(t, b.RecordRun(context.Background(), &core.RunRecord{ID: "empty"}))
	assert.Error(t, b.RecordRun(context.Background(), nil))
}

func TestRecordRun_RetainsLatest(t *testing.T) {
	b := New(config.MemoryConfig{RetainRuns: 3})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.RecordRun(ctx, testRun(fmt.Sprintf("r%d", i))))
	}

	runs := b.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "run-r7", runs[0].ID)
	assert.Equal(t, "run-r9", runs[2].ID)

	_, err := b.LoadRun(ctx, "run-r2")
	assert.ErrorIs(t, err, core.ErrRecordUnavailable)
	got, err := b.LoadRun(ctx, "run-r8")
	require.NoError(t, err)
	assert.Equal(t, "r8", got.Label)
}

func TestNew_DefaultRetention(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.Equal(t, DefaultRetainRuns, b.cfg.RetainRuns)
}
