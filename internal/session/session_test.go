package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harborlab/shipsim/internal/config"
	"github.com/harborlab/shipsim/internal/storage/memory"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maneuverDefaults() config.ManeuverConfig {
	return config.ManeuverConfig{
		Dt:         0.1,
		Retrigger:  core.RetriggerLatched,
		Strategy:   "sat",
		EventLimit: 16,
		Scenario:   core.DefaultScenario(),
	}
}

func newRegistry(t *testing.T) (*Registry, *memory.Backend) {
	t.Helper()
	store := memory.New(config.MemoryConfig{})
	r, err := NewRegistry(maneuverDefaults(), store, "", zerolog.Nop())
	require.NoError(t, err)
	return r, store
}

func closeScenario() *core.Scenario {
	sc := core.DefaultScenario()
	sc.Ship2.X = 5.01
	return &sc
}

func TestNew_DefaultScenario(t *testing.T) {
	r, _ := newRegistry(t)

	st, err := r.New(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, 0, st.Step)
	assert.Equal(t, core.DefaultScenario(), st.Scenario)
	assert.Equal(t, 1, r.Len())
}

func TestNew_InvalidScenario(t *testing.T) {
	r, _ := newRegistry(t)

	sc := core.DefaultScenario()
	sc.Ship1.Length = 0
	_, err := r.New(&sc)
	assert.True(t, errors.Is(err, core.ErrInvalidConfiguration))
	assert.Equal(t, 0, r.Len())
}

func TestNewRegistry_UnknownStrategy(t *testing.T) {
	cfg := maneuverDefaults()
	cfg.Strategy = "raycast"
	_, err := NewRegistry(cfg, memory.New(config.MemoryConfig{}), "", zerolog.Nop())
	assert.Error(t, err)
}

func TestStep(t *testing.T) {
	r, _ := newRegistry(t)
	st, err := r.New(closeScenario())
	require.NoError(t, err)

	st, err = r.Step(st.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Step)
	assert.True(t, st.Turned)
	assert.Less(t, st.Distance, 5.0)
	require.Len(t, st.Events, 1)
	assert.Equal(t, core.EventTurn, st.Events[0].Kind)

	st, err = r.Step(st.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Step)
	assert.False(t, st.Turned)
}

func TestUnknownSession(t *testing.T) {
	r, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Step("nope", 1)
	assert.True(t, errors.Is(err, ErrUnknownSession))
	_, err = r.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownSession))
	_, err = r.Clear("nope")
	assert.True(t, errors.Is(err, ErrUnknownSession))
	_, err = r.Save(ctx, "nope", "")
	assert.True(t, errors.Is(err, ErrUnknownSession))
	_, err = r.Load(ctx, "nope", "")
	assert.True(t, errors.Is(err, ErrUnknownSession))
	assert.True(t, errors.Is(r.Close("nope"), ErrUnknownSession))
}

func TestClear(t *testing.T) {
	r, _ := newRegistry(t)
	st, err := r.New(closeScenario())
	require.NoError(t, err)

	_, err = r.Step(st.ID, 5)
	require.NoError(t, err)

	st, err = r.Clear(st.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Step)
	assert.Equal(t, *closeScenario(), st.Scenario)
}

func TestSaveLoad(t *testing.T) {
	r, store := newRegistry(t)
	ctx := context.Background()

	st, err := r.New(closeScenario())
	require.NoError(t, err)
	stepped, err := r.Step(st.ID, 3)
	require.NoError(t, err)

	name, err := r.Save(ctx, st.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "ship_state", name)

	saved, err := store.LoadScenario(ctx, "ship_state")
	require.NoError(t, err)
	assert.Equal(t, stepped.Scenario, saved)

	_, err = r.Clear(st.ID)
	require.NoError(t, err)

	loaded, err := r.Load(ctx, st.ID, "")
	require.NoError(t, err)
	assert.Equal(t, stepped.Scenario, loaded.Scenario)
	assert.Equal(t, 0, loaded.Step)
}

func TestLoad_MissingLeavesSessionUnchanged(t *testing.T) {
	r, _ := newRegistry(t)
	st, err := r.New(closeScenario())
	require.NoError(t, err)
	before, err := r.Step(st.ID, 2)
	require.NoError(t, err)

	_, err = r.Load(context.Background(), st.ID, "never_saved")
	assert.True(t, errors.Is(err, core.ErrRecordUnavailable))

	after, err := r.Get(st.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Scenario, after.Scenario)
	assert.Equal(t, 2, after.Step)
}

func TestSessionsAreIsolated(t *testing.T) {
	r, _ := newRegistry(t)
	a, err := r.New(nil)
	require.NoError(t, err)
	b, err := r.New(nil)
	require.NoError(t, err)

	_, err = r.Step(a.ID, 10)
	require.NoError(t, err)

	got, err := r.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Step)
	assert.Equal(t, core.DefaultScenario(), got.Scenario)
	assert.Equal(t, []string{a.ID, b.ID}, r.IDs())
}

func TestStep_Concurrent(t *testing.T) {
	r, _ := newRegistry(t)
	st, err := r.New(nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = r.Step(st.ID, 1)
			}
		}()
	}
	wg.Wait()

	got, err := r.Get(st.ID)
	require.NoError(t, err)
	assert.Equal(t, 400, got.Step)
}

func TestClose(t *testing.T) {
	r, _ := newRegistry(t)
	st, err := r.New(nil)
	require.NoError(t, err)

	require.NoError(t, r.Close(st.ID))
	assert.Equal(t, 0, r.Len())
	_, err = r.Step(st.ID, 1)
	assert.True(t, errors.Is(err, ErrUnknownSession))
}

func TestAge(t *testing.T) {
	r, _ := newRegistry(t)
	st, err := r.New(nil)
	require.NoError(t, err)

	age, err := r.Age(st.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, age, time.Duration(0))
}
