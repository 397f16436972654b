package streaming

import (
	"encoding/json"
	"time"

	"github.com/harborlab/shipsim/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun = "start_run"
	TypeFrame    = "frame"
	TypeEndRun   = "end_run"
	TypeAck      = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run parameters and the static map.
type StartRunPayload struct {
	RunID        string           `json:"runId"`
	Label        string           `json:"label"`
	StartedAt    time.Time        `json:"startedAt"`
	Seed         int64            `json:"seed"`
	Config       core.SwarmConfig `json:"config"`
	MapSize      int              `json:"mapSize"`
	Map          []int            `json:"map,omitempty"` // row-major cell codes
	Islands      []core.Vec2      `json:"islands,omitempty"`
	Destinations []core.Vec2      `json:"destinations"`
	Frames       int              `json:"frames"`
}

// FramePayload carries the vessel positions of one snapshot and the events
// that happened on the step leading to it.
type FramePayload struct {
	RunID     string       `json:"runId"`
	Frame     int          `json:"frame"`
	Time      float64      `json:"time"`
	Positions []core.Vec2  `json:"positions"`
	Events    []core.Event `json:"events,omitempty"`
}

// EndRunPayload carries the arrival outcome.
type EndRunPayload struct {
	RunID    string `json:"runId"`
	EndSteps []int  `json:"endSteps"`
}
