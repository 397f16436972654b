package convert

import (
	"testing"

	"github.com/harborlab/shipsim/internal/model"
	"github.com/harborlab/shipsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointToVec2(t *testing.T) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: 12.5, Y: -3}})
	require.NoError(t, err)
	assert.Equal(t, core.Vec2{X: 12.5, Y: -3}, pointToVec2(pt))
}

func TestPointToVec2_Empty(t *testing.T) {
	assert.Equal(t, core.Vec2{}, pointToVec2(geom.Point{}))
}

func TestLineStringToTrack(t *testing.T) {
	seq := geom.NewSequence([]float64{1, 2, 3, 4, 5, 6}, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	require.NoError(t, err)
	track := lineStringToTrack(ls)

	require.Len(t, track, 3)
	assert.Equal(t, core.Vec2{X: 1, Y: 2}, track[0])
	assert.Equal(t, core.Vec2{X: 5, Y: 6}, track[2])
}

func TestLineStringToTrack_Empty(t *testing.T) {
	assert.Nil(t, lineStringToTrack(geom.LineString{}))
}

// Round-trip: Core → GORM → Core
func TestScenarioRoundTrip(t *testing.T) {
	want := core.DefaultScenario()
	want.Ship2.VY = 0.25
	want.TurnDirection = core.TurnRight

	m := CoreToScenario("harbour", want)
	assert.Equal(t, "harbour", m.Name)
	assert.Equal(t, 0.25, m.Ship2.VY)
	assert.Equal(t, "right", m.TurnDirection)

	got, err := ScenarioToCore(m)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestScenarioToCore_UnknownDirection(t *testing.T) {
	m := CoreToScenario("bad", core.DefaultScenario())
	m.TurnDirection = "sideways"

	_, err := ScenarioToCore(m)
	assert.ErrorIs(t, err, core.ErrMalformedScenario)
}

func TestRunEventToCore(t *testing.T) {
	e := core.Event{Kind: core.EventPairCollision, Step: 7, Ship: 1, Other: 3, Position: core.Vec2{X: 4, Y: 5}}
	assert.Equal(t, e, RunEventToCore(model.RunEvent{Step: 7, Kind: "pair_collision", Ship: 1, Other: 3, X: 4, Y: 5}))
}

func TestTrackToCore_StationaryRepeatsStart(t *testing.T) {
	start, err := vec2ToPoint(core.Vec2{X: 3, Y: 4})
	require.NoError(t, err)

	path, err := trackToCore(model.Track{Vessel: 2, Start: start}, 4)
	require.NoError(t, err)
	assert.Equal(t, []core.Vec2{{X: 3, Y: 4}, {X: 3, Y: 4}, {X: 3, Y: 4}, {X: 3, Y: 4}}, path)
}

func TestTrackToCore_LengthMismatch(t *testing.T) {
	ls, err := geom.NewLineString(geom.NewSequence([]float64{0, 0, 1, 1}, geom.DimXY))
	require.NoError(t, err)

	_, err = trackToCore(model.Track{Path: ls}, 3)
	assert.Error(t, err)
}
