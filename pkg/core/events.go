// pkg/core/events.go
package core

import "fmt"

// EventKind tags simulation events shown to the user.
type EventKind string

const (
	EventPairCollision    EventKind = "pair_collision"
	EventTerrainCollision EventKind = "terrain_collision"
	EventArrival          EventKind = "arrival"
	EventTurn             EventKind = "turn"
	EventHullContact      EventKind = "hull_contact"
)

// Event is a single notable occurrence during a run or session.
// Other is -1 when the event involves a single ship.
type Event struct {
	Kind     EventKind `json:"kind"`
	Step     int       `json:"step"`
	Ship     int       `json:"ship"`
	Other    int       `json:"other"`
	Position Vec2      `json:"position"`
	Detail   string    `json:"detail,omitempty"`
}

func (e Event) String() string {
	if e.Other >= 0 {
		return fmt.Sprintf("step %d: %s ship %d / ship %d at %s", e.Step, e.Kind, e.Ship, e.Other, e.Position)
	}
	return fmt.Sprintf("step %d: %s ship %d at %s", e.Step, e.Kind, e.Ship, e.Position)
}
