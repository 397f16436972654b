// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/internal/model"
	"github.com/harborlab/shipsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// vec2ToPoint converts a core.Vec2 to a geom.Point
func vec2ToPoint(v core.Vec2) (geom.Point, error) {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: v.X, Y: v.Y}, Type: geom.DimXY})
	if err != nil {
		return geom.Point{}, fmt.Errorf("point (%g, %g): %w", v.X, v.Y, err)
	}
	return pt, nil
}

func cellsToJSON(cells []core.CellType) (datatypes.JSON, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	ints := make([]int, len(cells))
	for i, c := range cells {
		ints[i] = int(c)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return nil, fmt.Errorf("marshal map cells: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// coreToTrack converts the path of vessel i. A vessel that never moved keeps
// an empty Path and only its Start point.
func coreToTrack(rec *core.SimulationRecord, i int, ref *geo.Reference) (model.Track, error) {
	track := rec.Track(i)
	t := model.Track{
		Vessel:    i,
		StartStep: rec.StartSteps[i],
		EndStep:   rec.EndSteps[i],
	}
	var err error
	if t.Start, err = vec2ToPoint(track[0]); err != nil {
		return model.Track{}, fmt.Errorf("vessel %d start: %w", i, err)
	}
	if i < len(rec.Destinations) {
		if t.Destination, err = vec2ToPoint(rec.Destinations[i]); err != nil {
			return model.Track{}, fmt.Errorf("vessel %d destination: %w", i, err)
		}
		if ref != nil {
			dest, err := ref.Point(rec.Destinations[i])
			if err != nil {
				return model.Track{}, fmt.Errorf("vessel %d destination: %w", i, err)
			}
			t.DestinationLonLat = dest.AsText()
		}
	}
	if !geo.Moves(track) {
		return t, nil
	}
	if t.Path, err = geo.Track(track); err != nil {
		return model.Track{}, fmt.Errorf("vessel %d: %w", i, err)
	}
	if ref != nil {
		ls, err := ref.TrackLonLat(track)
		if err != nil {
			return model.Track{}, fmt.Errorf("vessel %d: %w", i, err)
		}
		t.PathLonLat = ls.AsText()
	}
	return t, nil
}

func shipToColumns(p core.ShipParams) model.ShipColumns {
	return model.ShipColumns{X: p.X, Y: p.Y, VX: p.VX, VY: p.VY, Length: p.Length, Width: p.Width}
}

// CoreToScenario converts a core.Scenario to a GORM model.Scenario.
func CoreToScenario(name string, sc core.Scenario) model.Scenario {
	return model.Scenario{
		Name:          name,
		Ship1:         shipToColumns(sc.Ship1),
		Ship2:         shipToColumns(sc.Ship2),
		TurnDistance:  sc.TurnDistance,
		TurnDirection: string(sc.TurnDirection),
	}
}

// CoreToRun converts a finished run to a GORM model.Run with its tracks and
// events. ref may be nil, in which case lon/lat paths are left empty.
func CoreToRun(run *core.RunRecord, ref *geo.Reference) (model.Run, error) {
	if run == nil || run.Record == nil {
		return model.Run{}, fmt.Errorf("run has no record")
	}
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return model.Run{}, fmt.Errorf("marshal run config: %w", err)
	}

	cells, err := cellsToJSON(run.MapCells)
	if err != nil {
		return model.Run{}, err
	}
	var islands datatypes.JSON
	if len(run.Islands) > 0 {
		raw, err := json.Marshal(run.Islands)
		if err != nil {
			return model.Run{}, fmt.Errorf("marshal islands: %w", err)
		}
		islands = datatypes.JSON(raw)
	}

	rec := run.Record
	if len(rec.Trajectories) == 0 {
		return model.Run{}, fmt.Errorf("run %s has no snapshots", run.ID)
	}
	out := model.Run{
		UUID:      run.ID,
		Label:     run.Label,
		StartedAt: run.StartedAt,
		Seed:      run.Seed,
		Ships:     rec.Ships(),
		Terrain:   string(run.Config.Terrain),
		Steps:     len(rec.Trajectories) - 1,
		Dt:        rec.Dt,
		Config:    datatypes.JSON(cfg),
		MapSize:   run.MapSize,
		MapCells:  cells,
		Islands:   islands,
	}

	for i := 0; i < rec.Ships(); i++ {
		t, err := coreToTrack(rec, i, ref)
		if err != nil {
			return model.Run{}, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if rec.EndSteps[i] != core.NotReached {
			out.Arrived++
		}
		out.Tracks = append(out.Tracks, t)
	}

	for _, e := range rec.Events {
		out.Events = append(out.Events, CoreToRunEvent(e))
	}
	return out, nil
}

// CoreToRunEvent converts a core.Event to a GORM model.RunEvent.
func CoreToRunEvent(e core.Event) model.RunEvent {
	return model.RunEvent{
		Step:   e.Step,
		Kind:   string(e.Kind),
		Ship:   e.Ship,
		Other:  e.Other,
		X:      e.Position.X,
		Y:      e.Position.Y,
		Detail: e.Detail,
	}
}
