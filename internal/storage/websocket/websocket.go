package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/harborlab/shipsim/pkg/core"
	"github.com/harborlab/shipsim/pkg/streaming"
	"github.com/rs/zerolog"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams finished runs to a viewer: start_run, one frame per
// snapshot, end_run. start_run and end_run wait for an ack.
type Backend struct {
	cfg  Config
	log  zerolog.Logger
	link *link
	mu   sync.Mutex // one run on the wire at a time
}

// New creates a new WebSocket run recorder.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	l, err := newLink(b.cfg.URL, b.cfg.Secret, b.log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := l.open(ctx); err != nil {
		return err
	}
	b.link = l
	return nil
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	if b.link == nil {
		return nil
	}
	return b.link.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// RecordRun streams the run.
func (b *Backend) RecordRun(ctx context.Context, run *core.RunRecord) error {
	if run == nil || run.Record == nil {
		return fmt.Errorf("run has no record")
	}
	if b.link == nil {
		return fmt.Errorf("websocket recorder not initialized")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := run.Record
	start := streaming.StartRunPayload{
		RunID:        run.ID,
		Label:        run.Label,
		StartedAt:    run.StartedAt,
		Seed:         run.Seed,
		Config:       run.Config,
		MapSize:      run.MapSize,
		Islands:      run.Islands,
		Destinations: rec.Destinations,
		Frames:       len(rec.Trajectories),
	}
	for _, c := range run.MapCells {
		start.Map = append(start.Map, int(c))
	}

	data, err := marshalEnvelope(streaming.TypeStartRun, start)
	if err != nil {
		return err
	}

	b.link.setReplay(data)
	defer b.link.setReplay(nil)

	if err := b.link.request(ctx, data, streaming.TypeStartRun); err != nil {
		return err
	}

	events := eventsByFrame(rec.Events)
	for k, snap := range rec.Trajectories {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("streaming run %s: %w", run.ID, err)
		}
		frame, err := marshalEnvelope(streaming.TypeFrame, streaming.FramePayload{
			RunID:     run.ID,
			Frame:     k,
			Time:      float64(k) * rec.Dt,
			Positions: snap,
			Events:    events[k],
		})
		if err != nil {
			return err
		}
		if err := b.link.send(ctx, frame); err != nil {
			return fmt.Errorf("streaming run %s: %w", run.ID, err)
		}
	}

	end, err := marshalEnvelope(streaming.TypeEndRun, streaming.EndRunPayload{RunID: run.ID, EndSteps: rec.EndSteps})
	if err != nil {
		return err
	}
	return b.link.request(ctx, end, streaming.TypeEndRun)
}

// eventsByFrame groups events by the snapshot they precede: an event on
// step k is shown with frame k+1.
func eventsByFrame(events []core.Event) map[int][]core.Event {
	out := make(map[int][]core.Event)
	for _, e := range events {
		out[e.Step+1] = append(out[e.Step+1], e)
	}
	return out
}
