package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Scenario{},
	&Run{},
	&Track{},
	&RunEvent{},
}

////////////////////////
// SCENARIO MODELS
////////////////////////

// ShipColumns is the persisted state of one ship, embedded with a prefix.
type ShipColumns struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	VX     float64 `json:"vx"`
	VY     float64 `json:"vy"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// Scenario is a saved two-ship maneuver, keyed by name. Saving a name again
// overwrites the row.
type Scenario struct {
	gorm.Model
	Name          string      `json:"name" gorm:"size:127;uniqueIndex:idx_scenario_name"`
	Ship1         ShipColumns `json:"ship1" gorm:"embedded;embeddedPrefix:ship1_"`
	Ship2         ShipColumns `json:"ship2" gorm:"embedded;embeddedPrefix:ship2_"`
	TurnDistance  float64     `json:"turnDistance"`
	TurnDirection string      `json:"turnDirection" gorm:"size:16"`
}

func (*Scenario) TableName() string {
	return "scenarios"
}

////////////////////////
// RUN MODELS
////////////////////////

// Run is an archived swarm run.
type Run struct {
	gorm.Model
	UUID      string         `json:"uuid" gorm:"size:64;uniqueIndex:idx_run_uuid"`
	Label     string         `json:"label" gorm:"size:127"`
	StartedAt time.Time      `json:"startedAt" gorm:"index:idx_run_started_at"`
	Seed      int64          `json:"seed"`
	Ships     int            `json:"ships"`
	Terrain   string         `json:"terrain" gorm:"size:16"`
	Steps     int            `json:"steps"`
	Dt        float64        `json:"dt"`
	Config    datatypes.JSON `json:"config"`
	MapSize   int            `json:"mapSize"`
	MapCells  datatypes.JSON `json:"mapCells"` // []int, row-major
	Islands   datatypes.JSON `json:"islands"`
	Arrived   int            `json:"arrived"`
	Tracks    []Track        `json:"tracks"`
	Events    []RunEvent     `json:"events"`
}

func (*Run) TableName() string {
	return "runs"
}

// Track is the path of one vessel in a run. Path is empty when the vessel
// never left Start.
type Track struct {
	ID                uint            `json:"id" gorm:"primarykey"`
	RunID             uint            `json:"runId" gorm:"index:idx_track_run_id"`
	Vessel            int             `json:"vessel"`
	Start             geom.Point      `json:"start"`
	Destination       geom.Point      `json:"destination"`
	DestinationLonLat string          `json:"destinationLonLat"` // WKT, empty without a georeference
	Path              geom.LineString `json:"path"`
	PathLonLat        string          `json:"pathLonLat"` // WKT, empty without a georeference
	StartStep         int             `json:"startStep"`
	EndStep           int             `json:"endStep"`
}

func (*Track) TableName() string {
	return "tracks"
}

// RunEvent is a collision, arrival or turn recorded during a run.
type RunEvent struct {
	ID     uint    `json:"id" gorm:"primarykey"`
	RunID  uint    `json:"runId" gorm:"index:idx_run_event_run_id"`
	Step   int     `json:"step"`
	Kind   string  `json:"kind" gorm:"size:32"`
	Ship   int     `json:"ship"`
	Other  int     `json:"other"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Detail string  `json:"detail" gorm:"size:255"`
}

func (*RunEvent) TableName() string {
	return "run_events"
}
