package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/harborlab/shipsim/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Simulation coordinates are planar map units. Exported geometry is either in
// map units or, through a Reference, in EPSG:4326 lon/lat. The georeference
// goes through EPSG:3857 so that map units stay metric around the origin.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Vec2FromString parses "x,y" into a vector.
func Vec2FromString(coords string) (core.Vec2, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return core.Vec2{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Vec2{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Vec2{}, ErrInvalidCoordinates
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return core.Vec2{}, ErrInvalidCoordinates
	}
	return core.Vec2{X: x, Y: y}, nil
}

// Reference places the map origin at a lon/lat and scales map units to metres.
type Reference struct {
	Lon, Lat      float64
	MetresPerUnit float64

	originX, originY float64
}

// NewReference projects the origin to EPSG:3857 once.
func NewReference(lon, lat, metresPerUnit float64) (Reference, error) {
	if math.IsNaN(lon) || lon < -180 || lon > 180 || math.IsNaN(lat) || lat < -85 || lat > 85 {
		return Reference{}, fmt.Errorf("%w: origin %g,%g", ErrInvalidCoordinates, lon, lat)
	}
	if !(metresPerUnit > 0) || math.IsInf(metresPerUnit, 0) {
		return Reference{}, fmt.Errorf("%w: %g metres per unit", ErrInvalidCoordinates, metresPerUnit)
	}
	x, y, _ := wgs84.EPSG().Transform(4326, 3857)(lon, lat, 0)
	return Reference{
		Lon:           lon,
		Lat:           lat,
		MetresPerUnit: metresPerUnit,
		originX:       x,
		originY:       y,
	}, nil
}

// LonLat converts a map position to EPSG:4326.
func (r Reference) LonLat(p core.Vec2) (lon, lat float64) {
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ = f(r.originX+p.X*r.MetresPerUnit, r.originY+p.Y*r.MetresPerUnit, 0)
	return lon, lat
}

// Point returns the lon/lat point of a map position.
func (r Reference) Point(p core.Vec2) (geom.Point, error) {
	lon, lat := r.LonLat(p)
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}})
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return pt, nil
}
