// Package risk scores accident likelihood from sea state, vessel class and speed.
package risk

import (
	"fmt"
	"math"

	"github.com/harborlab/shipsim/pkg/core"
)

// ImpactFactor scales probability into the impact score.
const ImpactFactor = 10.0

var weatherWeight = map[core.Weather]float64{
	core.WeatherSunny:  0.1,
	core.WeatherCloudy: 0.2,
	core.WeatherRainy:  0.5,
	core.WeatherStormy: 0.8,
}

var classWeight = map[core.VesselClass]float64{
	core.ClassCargo:     0.2,
	core.ClassPassenger: 0.3,
	core.ClassFishing:   0.4,
	core.ClassMilitary:  0.1,
}

// Assessment is an additive score, not a normalised probability; it can
// exceed 1 at high speed in bad weather.
type Assessment struct {
	Weather     core.Weather     `json:"weather"`
	Class       core.VesselClass `json:"class"`
	Speed       float64          `json:"speed"`
	Probability float64          `json:"probability"`
	Impact      float64          `json:"impact"`
}

func (a Assessment) String() string {
	return fmt.Sprintf("probability %.2f, impact %.2f", a.Probability, a.Impact)
}

// Assess scores the given conditions.
func Assess(w core.Weather, c core.VesselClass, speed float64) (Assessment, error) {
	ww, ok := weatherWeight[w]
	if !ok {
		return Assessment{}, fmt.Errorf("%w: unknown weather %q", core.ErrInvalidConfiguration, w)
	}
	cw, ok := classWeight[c]
	if !ok {
		return Assessment{}, fmt.Errorf("%w: unknown vessel class %q", core.ErrInvalidConfiguration, c)
	}
	if math.IsNaN(speed) || speed < core.MinSpeed || speed > core.MaxSpeed {
		return Assessment{}, fmt.Errorf("%w: speed %g outside [%g,%g]", core.ErrInvalidConfiguration, speed, core.MinSpeed, core.MaxSpeed)
	}

	p := ww + cw + speed/core.MaxSpeed
	return Assessment{
		Weather:     w,
		Class:       c,
		Speed:       speed,
		Probability: p,
		Impact:      p * ImpactFactor,
	}, nil
}

// ForConfig scores the conditions of a swarm run.
func ForConfig(cfg core.SwarmConfig) (Assessment, error) {
	return Assess(cfg.Weather, cfg.Class, cfg.Speed)
}
