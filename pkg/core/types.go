// pkg/core/types.go
package core

import (
	"fmt"
	"math"
	"strings"
)

// Vec2 is a point or vector in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

// Neg returns -v.
func (v Vec2) Neg() Vec2 { return Vec2{-v.X, -v.Y} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// Perp returns v rotated 90° counter-clockwise.
func (v Vec2) Perp() Vec2 { return Vec2{-v.Y, v.X} }

// Normalize returns the unit vector of v. ok is false for the zero vector,
// in which case the zero vector is returned instead of NaN.
func (v Vec2) Normalize() (unit Vec2, ok bool) {
	l := v.Len()
	if l == 0 {
		return Vec2{}, false
	}
	return Vec2{v.X / l, v.Y / l}, true
}

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

func (v Vec2) String() string { return fmt.Sprintf("(%g, %g)", v.X, v.Y) }

// CellType tags a map cell. Values match the integer codes the renderer expects.
type CellType uint8

const (
	CellNone CellType = iota
	CellCoastline
	CellIsland
	CellShoal
)

// IsObstacle reports whether ships must avoid the cell.
func (c CellType) IsObstacle() bool {
	return c == CellCoastline || c == CellIsland || c == CellShoal
}

func (c CellType) String() string {
	switch c {
	case CellNone:
		return "none"
	case CellCoastline:
		return "coastline"
	case CellIsland:
		return "island"
	case CellShoal:
		return "shoal"
	default:
		return fmt.Sprintf("cell(%d)", uint8(c))
	}
}

// Weather is the sea state tag chosen in the UI.
type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
	WeatherStormy Weather = "stormy"
)

// ParseWeather validates a weather tag (case-insensitive).
func ParseWeather(s string) (Weather, error) {
	switch w := Weather(strings.ToLower(strings.TrimSpace(s))); w {
	case WeatherSunny, WeatherCloudy, WeatherRainy, WeatherStormy:
		return w, nil
	default:
		return "", fmt.Errorf("%w: unknown weather %q", ErrInvalidConfiguration, s)
	}
}

// VesselClass is the vessel profile chosen in the UI.
type VesselClass string

const (
	ClassCargo     VesselClass = "cargo"
	ClassPassenger VesselClass = "passenger"
	ClassFishing   VesselClass = "fishing"
	ClassMilitary  VesselClass = "military"
)

// ParseVesselClass validates a vessel class tag (case-insensitive).
func ParseVesselClass(s string) (VesselClass, error) {
	switch c := VesselClass(strings.ToLower(strings.TrimSpace(s))); c {
	case ClassCargo, ClassPassenger, ClassFishing, ClassMilitary:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown vessel class %q", ErrInvalidConfiguration, s)
	}
}

// Terrain selects how obstacles are represented in a swarm run.
type Terrain string

const (
	// TerrainGrid uses a tagged cell grid.
	TerrainGrid Terrain = "grid"
	// TerrainIslands uses island centre points with an implicit radius.
	TerrainIslands Terrain = "islands"
	// TerrainOpen has no obstacles and no steering; vessels drift.
	TerrainOpen Terrain = "open"
)

// ParseTerrain validates a terrain tag. Empty selects TerrainGrid.
func ParseTerrain(s string) (Terrain, error) {
	switch t := Terrain(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TerrainGrid, nil
	case TerrainGrid, TerrainIslands, TerrainOpen:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown terrain %q", ErrInvalidConfiguration, s)
	}
}
