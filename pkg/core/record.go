// pkg/core/record.go
package core

import (
	"time"

	"gorgonia.org/tensor"
)

// NotReached marks a vessel that never came within the arrival radius.
const NotReached = -1

// SimulationRecord is the output of a swarm run.
// Trajectories[0] is the initial state; Trajectories[k+1] follows step k.
type SimulationRecord struct {
	Dt           float64  `json:"dt"`
	Trajectories [][]Vec2 `json:"trajectories"`
	Destinations []Vec2   `json:"destinations"`
	StartSteps   []int    `json:"startSteps"`
	EndSteps     []int    `json:"endSteps"`
	Events       []Event  `json:"events"`
}

// NewSimulationRecord allocates a record for n vessels and the initial positions.
func NewSimulationRecord(dt float64, steps int, initial, destinations []Vec2) *SimulationRecord {
	n := len(initial)
	r := &SimulationRecord{
		Dt:           dt,
		Trajectories: make([][]Vec2, 0, steps+1),
		Destinations: append([]Vec2(nil), destinations...),
		StartSteps:   make([]int, n),
		EndSteps:     make([]int, n),
	}
	for i := range r.EndSteps {
		r.EndSteps[i] = NotReached
	}
	r.Append(initial)
	return r
}

// Append stores a copy of the positions for one step.
func (r *SimulationRecord) Append(positions []Vec2) {
	r.Trajectories = append(r.Trajectories, append([]Vec2(nil), positions...))
}

// Ships returns the number of vessels recorded.
func (r *SimulationRecord) Ships() int {
	if len(r.Trajectories) == 0 {
		return 0
	}
	return len(r.Trajectories[0])
}

// Shape returns (snapshots, ships, 2).
func (r *SimulationRecord) Shape() [3]int {
	return [3]int{len(r.Trajectories), r.Ships(), 2}
}

// Track returns the positions of vessel i over time.
func (r *SimulationRecord) Track(i int) []Vec2 {
	out := make([]Vec2, len(r.Trajectories))
	for k, snap := range r.Trajectories {
		out[k] = snap[i]
	}
	return out
}

// StartTime returns the departure time of vessel i in seconds.
func (r *SimulationRecord) StartTime(i int) float64 {
	return float64(r.StartSteps[i]) * r.Dt
}

// EndTime returns the arrival time of vessel i in seconds. ok is false if the
// vessel never arrived.
func (r *SimulationRecord) EndTime(i int) (seconds float64, ok bool) {
	if r.EndSteps[i] == NotReached {
		return 0, false
	}
	return float64(r.EndSteps[i]) * r.Dt, true
}

// Tensor returns the trajectories as a dense (snapshots × ships × 2) tensor.
func (r *SimulationRecord) Tensor() *tensor.Dense {
	shape := r.Shape()
	backing := make([]float64, 0, shape[0]*shape[1]*shape[2])
	for _, snap := range r.Trajectories {
		for _, p := range snap {
			backing = append(backing, p.X, p.Y)
		}
	}
	return tensor.New(tensor.WithShape(shape[0], shape[1], shape[2]), tensor.WithBacking(backing))
}

// RunRecord is a completed swarm run with its inputs, as handed to recorders.
type RunRecord struct {
	ID        string            `json:"id"`
	Label     string            `json:"label"`
	StartedAt time.Time         `json:"startedAt"`
	Seed      int64             `json:"seed"`
	Config    SwarmConfig       `json:"config"`
	MapSize   int               `json:"mapSize"`
	MapCells  []CellType        `json:"mapCells,omitempty"`
	Islands   []Vec2            `json:"islands,omitempty"`
	Record    *SimulationRecord `json:"record"`
}
