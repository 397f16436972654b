// pkg/core/config.go
package core

import (
	"fmt"
	"math"
)

// Limits accepted from the UI layer.
const (
	MinShips = 2
	MaxShips = 10
	MinSpeed = 0.0
	MaxSpeed = 50.0
)

// SwarmConfig is the immutable parameter set of one swarm run.
type SwarmConfig struct {
	Ships   int         `json:"ships"`
	Weather Weather     `json:"weather"`
	Class   VesselClass `json:"class"`
	Speed   float64     `json:"speed"`
	Terrain Terrain     `json:"terrain"`

	MapSize      int     `json:"mapSize"`
	Border       int     `json:"border"`
	Islands      int     `json:"islands"`
	Shoals       int     `json:"shoals"`
	IslandRadius float64 `json:"islandRadius"`

	Steps int     `json:"steps"`
	Dt    float64 `json:"dt"`

	AvoidRadius     float64 `json:"avoidRadius"`
	CollisionRadius float64 `json:"collisionRadius"`
	ArrivalRadius   float64 `json:"arrivalRadius"`
}

// DefaultSwarmConfig returns the reference parameters: a 100-cell map with a
// 10-cell coastline band, 5 islands, 3 shoals and 50 steps of 0.1s.
func DefaultSwarmConfig() SwarmConfig {
	return SwarmConfig{
		Ships:           2,
		Weather:         WeatherSunny,
		Class:           ClassCargo,
		Speed:           10,
		Terrain:         TerrainGrid,
		MapSize:         100,
		Border:          10,
		Islands:         5,
		Shoals:          3,
		IslandRadius:    2,
		Steps:           50,
		Dt:              0.1,
		AvoidRadius:     10,
		CollisionRadius: 10,
		ArrivalRadius:   1,
	}
}

// Validate rejects parameter sets a run cannot start with.
func (c SwarmConfig) Validate() error {
	if c.Ships < MinShips || c.Ships > MaxShips {
		return fmt.Errorf("%w: ship count %d outside [%d,%d]", ErrInvalidConfiguration, c.Ships, MinShips, MaxShips)
	}
	if math.IsNaN(c.Speed) || c.Speed < MinSpeed || c.Speed > MaxSpeed {
		return fmt.Errorf("%w: speed %g outside [%g,%g]", ErrInvalidConfiguration, c.Speed, MinSpeed, MaxSpeed)
	}
	if c.MapSize <= 0 {
		return fmt.Errorf("%w: map size %d must be positive", ErrInvalidConfiguration, c.MapSize)
	}
	if c.Border < 0 || 2*c.Border >= c.MapSize {
		return fmt.Errorf("%w: border %d leaves no water on a %d map", ErrInvalidConfiguration, c.Border, c.MapSize)
	}
	if c.Islands < 0 || c.Shoals < 0 {
		return fmt.Errorf("%w: obstacle counts must not be negative", ErrInvalidConfiguration)
	}
	if c.Steps <= 0 || !(c.Dt > 0) {
		return fmt.Errorf("%w: %d steps of %gs", ErrInvalidConfiguration, c.Steps, c.Dt)
	}
	if c.AvoidRadius < 0 || c.CollisionRadius < 0 || c.ArrivalRadius < 0 || c.IslandRadius < 0 {
		return fmt.Errorf("%w: radii must not be negative", ErrInvalidConfiguration)
	}
	if _, err := ParseWeather(string(c.Weather)); err != nil {
		return err
	}
	if _, err := ParseVesselClass(string(c.Class)); err != nil {
		return err
	}
	if _, err := ParseTerrain(string(c.Terrain)); err != nil {
		return err
	}
	return nil
}
