package geo

import (
	"encoding/json"
	"fmt"

	"github.com/harborlab/shipsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Moves reports whether a track visits at least two distinct positions.
// A stationary vessel has no valid LineString.
func Moves(points []core.Vec2) bool {
	for _, p := range points[min(1, len(points)):] {
		if p != points[0] {
			return true
		}
	}
	return false
}

func lineString(flat []float64) (geom.LineString, error) {
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("track: %w", err)
	}
	return ls, nil
}

// Track converts a vessel track to a LineString in map units.
// Fewer than two points give an empty LineString. A stationary track is
// rejected by geometry validation; check Moves first.
func Track(points []core.Vec2) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return lineString(flat)
}

// TrackLonLat converts a vessel track to a lon/lat LineString.
func (r Reference) TrackLonLat(points []core.Vec2) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, nil
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		lon, lat := r.LonLat(p)
		flat = append(flat, lon, lat)
	}
	return lineString(flat)
}

// Outline closes a ring of hull vertices into a polygon in map units.
func Outline(verts []core.Vec2) (geom.Polygon, error) {
	if len(verts) < 3 {
		return geom.Polygon{}, fmt.Errorf("outline needs 3 vertices, got %d", len(verts))
	}
	flat := make([]float64, 0, (len(verts)+1)*2)
	for _, v := range verts {
		flat = append(flat, v.X, v.Y)
	}
	flat = append(flat, verts[0].X, verts[0].Y)
	ring, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("outline ring: %w", err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("outline: %w", err)
	}
	return poly, nil
}

// OutlinesIntersect reports whether two hull outlines share any point.
func OutlinesIntersect(a, b []core.Vec2) (bool, error) {
	pa, err := Outline(a)
	if err != nil {
		return false, err
	}
	pb, err := Outline(b)
	if err != nil {
		return false, err
	}
	return geom.Intersects(pa.AsGeometry(), pb.AsGeometry()), nil
}

// ParseTrack parses a JSON array of coordinates into vectors.
// Input format: "[[x1,y1],[x2,y2],...]"
func ParseTrack(input string) ([]core.Vec2, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse track JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("track must have at least 2 points, got %d", len(coords))
	}

	track := make([]core.Vec2, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		track[i] = core.Vec2{X: coord[0], Y: coord[1]}
	}

	return track, nil
}
