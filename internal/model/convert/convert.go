package convert

import (
	"encoding/json"
	"fmt"

	"github.com/harborlab/shipsim/internal/model"
	"github.com/harborlab/shipsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// pointToVec2 converts a geom.Point to a core.Vec2
func pointToVec2(p geom.Point) core.Vec2 {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Vec2{}
	}
	return core.Vec2{X: coord.XY.X, Y: coord.XY.Y}
}

// lineStringToTrack converts a geom.LineString to a vessel track
func lineStringToTrack(ls geom.LineString) []core.Vec2 {
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	track := make([]core.Vec2, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		pt := seq.GetXY(i)
		track[i] = core.Vec2{X: pt.X, Y: pt.Y}
	}
	return track
}

func columnsToShip(c model.ShipColumns) core.ShipParams {
	return core.ShipParams{X: c.X, Y: c.Y, VX: c.VX, VY: c.VY, Length: c.Length, Width: c.Width}
}

// ScenarioToCore converts a GORM Scenario to a core.Scenario. An unknown turn
// direction wraps core.ErrMalformedScenario.
func ScenarioToCore(s model.Scenario) (core.Scenario, error) {
	dir, err := core.ParseTurnDirection(s.TurnDirection)
	if err != nil {
		return core.Scenario{}, fmt.Errorf("%w: %v", core.ErrMalformedScenario, err)
	}
	return core.Scenario{
		Ship1:         columnsToShip(s.Ship1),
		Ship2:         columnsToShip(s.Ship2),
		TurnDistance:  s.TurnDistance,
		TurnDirection: dir,
	}, nil
}

// trackToCore returns the positions of a vessel over snapshots. An empty
// Path repeats Start.
func trackToCore(t model.Track, snapshots int) ([]core.Vec2, error) {
	path := lineStringToTrack(t.Path)
	if path == nil {
		path = make([]core.Vec2, snapshots)
		start := pointToVec2(t.Start)
		for k := range path {
			path[k] = start
		}
	}
	if len(path) != snapshots {
		return nil, fmt.Errorf("vessel %d has %d positions, want %d", t.Vessel, len(path), snapshots)
	}
	return path, nil
}

// RunToCore rebuilds a run record from an archived row with its tracks and
// events preloaded in vessel and insertion order.
func RunToCore(r model.Run) (*core.RunRecord, error) {
	out := &core.RunRecord{
		ID:        r.UUID,
		Label:     r.Label,
		StartedAt: r.StartedAt,
		Seed:      r.Seed,
		MapSize:   r.MapSize,
	}
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &out.Config); err != nil {
			return nil, fmt.Errorf("run %s config: %w", r.UUID, err)
		}
	}
	if len(r.MapCells) > 0 {
		var ints []int
		if err := json.Unmarshal(r.MapCells, &ints); err != nil {
			return nil, fmt.Errorf("run %s map cells: %w", r.UUID, err)
		}
		out.MapCells = make([]core.CellType, len(ints))
		for i, c := range ints {
			out.MapCells[i] = core.CellType(c)
		}
	}
	if len(r.Islands) > 0 {
		if err := json.Unmarshal(r.Islands, &out.Islands); err != nil {
			return nil, fmt.Errorf("run %s islands: %w", r.UUID, err)
		}
	}
	if len(r.Tracks) != r.Ships {
		return nil, fmt.Errorf("run %s has %d tracks for %d ships", r.UUID, len(r.Tracks), r.Ships)
	}

	snapshots := r.Steps + 1
	rec := &core.SimulationRecord{
		Dt:           r.Dt,
		Trajectories: make([][]core.Vec2, snapshots),
		Destinations: make([]core.Vec2, r.Ships),
		StartSteps:   make([]int, r.Ships),
		EndSteps:     make([]int, r.Ships),
	}
	for k := range rec.Trajectories {
		rec.Trajectories[k] = make([]core.Vec2, r.Ships)
	}
	for i, t := range r.Tracks {
		if t.Vessel != i {
			return nil, fmt.Errorf("run %s: track %d belongs to vessel %d", r.UUID, i, t.Vessel)
		}
		path, err := trackToCore(t, snapshots)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", r.UUID, err)
		}
		for k, p := range path {
			rec.Trajectories[k][i] = p
		}
		rec.Destinations[i] = pointToVec2(t.Destination)
		rec.StartSteps[i] = t.StartStep
		rec.EndSteps[i] = t.EndStep
	}
	for _, e := range r.Events {
		rec.Events = append(rec.Events, RunEventToCore(e))
	}
	out.Record = rec
	return out, nil
}

// RunEventToCore converts a GORM RunEvent to a core.Event.
func RunEventToCore(e model.RunEvent) core.Event {
	return core.Event{
		Kind:     core.EventKind(e.Kind),
		Step:     e.Step,
		Ship:     e.Ship,
		Other:    e.Other,
		Position: core.Vec2{X: e.X, Y: e.Y},
		Detail:   e.Detail,
	}
}
