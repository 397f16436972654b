// Package worldmap builds the static obstacle layer a swarm run steers around.
package worldmap

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/harborlab/shipsim/pkg/core"
)

// Obstacles is the read-only view the steering and collision passes need.
type Obstacles interface {
	// Blocked reports whether a vessel at p sits on an obstacle.
	Blocked(p core.Vec2) bool
	// ObstaclesNear calls fn for every obstacle strictly closer than radius to p.
	ObstaclesNear(p core.Vec2, radius float64, fn func(obstacle core.Vec2, dist float64))
}

// GridConfig controls grid generation.
type GridConfig struct {
	Size       int
	Border     int
	Islands    int
	Shoals     int
	IslandHalf int
	ShoalHalf  int
}

// DefaultGridConfig is a 100-cell map with a 10-cell coastline band, five
// 4x4 islands and three 10x10 shoals.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		Size:       100,
		Border:     10,
		Islands:    5,
		Shoals:     3,
		IslandHalf: 2,
		ShoalHalf:  5,
	}
}

// ConfigFrom derives grid parameters from a swarm configuration.
func ConfigFrom(c core.SwarmConfig) GridConfig {
	g := DefaultGridConfig()
	g.Size = c.MapSize
	g.Border = c.Border
	g.Islands = c.Islands
	g.Shoals = c.Shoals
	if c.IslandRadius > 0 {
		g.IslandHalf = int(math.Round(c.IslandRadius))
	}
	return g
}

// Grid is a square map of tagged cells. Index (x, y) addresses row x, column y.
type Grid struct {
	size  int
	cells []core.CellType
}

// Generate builds a grid: coastline band first, then islands, then shoals.
// Later placements overwrite earlier tags, including the coastline.
func Generate(cfg GridConfig, rng *rand.Rand) (*Grid, error) {
	if cfg.Size <= 0 || cfg.Border < 0 || cfg.Size <= 2*cfg.Border {
		return nil, fmt.Errorf("%w: grid size %d with border %d", core.ErrInvalidConfiguration, cfg.Size, cfg.Border)
	}
	if cfg.Islands < 0 || cfg.Shoals < 0 {
		return nil, fmt.Errorf("%w: negative obstacle count", core.ErrInvalidConfiguration)
	}

	g := &Grid{size: cfg.Size, cells: make([]core.CellType, cfg.Size*cfg.Size)}

	hi := cfg.Size - cfg.Border
	for x := 0; x < cfg.Size; x++ {
		for y := 0; y < cfg.Size; y++ {
			if x < cfg.Border || x > hi || y < cfg.Border || y > hi {
				g.cells[x*g.size+y] = core.CellCoastline
			}
		}
	}

	for i := 0; i < cfg.Islands; i++ {
		cx, cy := interior(cfg, rng), interior(cfg, rng)
		g.fill(cx, cy, cfg.IslandHalf, core.CellIsland)
	}
	for i := 0; i < cfg.Shoals; i++ {
		cx, cy := interior(cfg, rng), interior(cfg, rng)
		g.fill(cx, cy, cfg.ShoalHalf, core.CellShoal)
	}

	return g, nil
}

// FromCells rebuilds a grid from a stored row-major cell slice.
func FromCells(size int, cells []core.CellType) (*Grid, error) {
	if size <= 0 || len(cells) != size*size {
		return nil, fmt.Errorf("%w: %d cells for size %d", core.ErrInvalidConfiguration, len(cells), size)
	}
	return &Grid{size: size, cells: append([]core.CellType(nil), cells...)}, nil
}

// interior draws a centre coordinate from [border, size-border).
func interior(cfg GridConfig, rng *rand.Rand) int {
	return cfg.Border + rng.Intn(cfg.Size-2*cfg.Border)
}

// fill tags the half-open block [cx-half, cx+half) x [cy-half, cy+half).
func (g *Grid) fill(cx, cy, half int, tag core.CellType) {
	x0, x1 := clamp(cx-half, g.size), clamp(cx+half, g.size)
	y0, y1 := clamp(cy-half, g.size), clamp(cy+half, g.size)
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			g.cells[x*g.size+y] = tag
		}
	}
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if v > size {
		return size
	}
	return v
}

// Size returns the side length in cells.
func (g *Grid) Size() int { return g.size }

// At returns the cell tag. Out-of-grid coordinates read as coastline.
func (g *Grid) At(x, y int) core.CellType {
	if x < 0 || y < 0 || x >= g.size || y >= g.size {
		return core.CellCoastline
	}
	return g.cells[x*g.size+y]
}

// Blocked truncates p to a cell index and reports whether that cell is an
// obstacle.
func (g *Grid) Blocked(p core.Vec2) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return true
	}
	return g.At(int(p.X), int(p.Y)).IsObstacle()
}

// ObstaclesNear visits obstacle cells in row-major order whose index is
// strictly closer than radius to p.
func (g *Grid) ObstaclesNear(p core.Vec2, radius float64, fn func(obstacle core.Vec2, dist float64)) {
	if !(radius > 0) || math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return
	}
	x0 := clamp(int(math.Floor(p.X-radius)), g.size)
	x1 := clamp(int(math.Ceil(p.X+radius))+1, g.size)
	y0 := clamp(int(math.Floor(p.Y-radius)), g.size)
	y1 := clamp(int(math.Ceil(p.Y+radius))+1, g.size)
	for x := x0; x < x1; x++ {
		for y := y0; y < y1; y++ {
			if !g.cells[x*g.size+y].IsObstacle() {
				continue
			}
			o := core.Vec2{X: float64(x), Y: float64(y)}
			if d := p.Dist(o); d < radius {
				fn(o, d)
			}
		}
	}
}

// Counts returns the number of cells per tag.
func (g *Grid) Counts() map[core.CellType]int {
	out := make(map[core.CellType]int, 4)
	for _, c := range g.cells {
		out[c]++
	}
	return out
}

// Cells returns a row-major copy of the cell tags.
func (g *Grid) Cells() []core.CellType {
	return append([]core.CellType(nil), g.cells...)
}

// Rows returns the grid as the integer codes the renderer expects, one slice
// per row.
func (g *Grid) Rows() [][]int {
	out := make([][]int, g.size)
	for x := range out {
		row := make([]int, g.size)
		for y := range row {
			row[y] = int(g.cells[x*g.size+y])
		}
		out[x] = row
	}
	return out
}
