package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/harborlab/shipsim/pkg/streaming"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_run/end_run unless ack is false.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun) {
				data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testRun() *core.RunRecord {
	rec := core.NewSimulationRecord(0.1, 2,
		[]core.Vec2{{X: 10, Y: 10}, {X: 20, Y: 20}},
		[]core.Vec2{{X: 12, Y: 10}, {X: 50, Y: 50}})
	rec.Append([]core.Vec2{{X: 11, Y: 10}, {X: 21, Y: 21}})
	rec.Append([]core.Vec2{{X: 12, Y: 10}, {X: 22, Y: 22}})
	rec.EndSteps[0] = 1
	rec.Events = []core.Event{{Kind: core.EventArrival, Step: 1, Ship: 0, Other: -1}}
	return &core.RunRecord{
		ID:       "run-1",
		Label:    "harbour",
		Config:   core.DefaultSwarmConfig(),
		MapSize:  2,
		MapCells: []core.CellType{core.CellCoastline, core.CellNone, core.CellNone, core.CellShoal},
		Record:   rec,
	}
}

func TestRecordRun_StreamsFrames(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s3cret"}, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.RecordRun(context.Background(), testRun()))

	// end_run is acked only after the server read every earlier message.
	msgs := ml.all()
	require.Len(t, msgs, 5)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	for _, m := range msgs[1:4] {
		assert.Equal(t, streaming.TypeFrame, m.Type)
	}
	assert.Equal(t, streaming.TypeEndRun, msgs[4].Type)
	assert.Equal(t, "s3cret", ml.secret)

	var start streaming.StartRunPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "run-1", start.RunID)
	assert.Equal(t, 3, start.Frames)
	assert.Equal(t, []int{1, 0, 0, 3}, start.Map)

	var last streaming.FramePayload
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &last))
	assert.Equal(t, 2, last.Frame)
	assert.InDelta(t, 0.2, last.Time, 1e-12)
	assert.Equal(t, []core.Vec2{{X: 12, Y: 10}, {X: 22, Y: 22}}, last.Positions)
	require.Len(t, last.Events, 1)
	assert.Equal(t, core.EventArrival, last.Events[0].Kind)

	var end streaming.EndRunPayload
	require.NoError(t, json.Unmarshal(msgs[4].Payload, &end))
	assert.Equal(t, []int{1, core.NotReached}, end.EndSteps)
}

func TestRecordRun_AckTimeout(t *testing.T) {
	srv, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := b.RecordRun(ctx, testRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), streaming.TypeStartRun)
}

func TestRecordRun_NoRecord(t *testing.T) {
	b := New(Config{}, zerolog.Nop())
	assert.Error(t, b.RecordRun(context.Background(), &core.RunRecord{}))
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/api"}, zerolog.Nop())
	assert.Error(t, b.Init())
}

// Once every redial fails the link stops accepting frames instead of
// queueing them for a writer that is gone.
func TestLink_DeadAfterRedialsFail(t *testing.T) {
	srv, _ := testServer(t, true)

	l, err := newLink(wsURL(srv), "s", zerolog.Nop())
	require.NoError(t, err)
	l.redials = 1
	l.backoff = time.Millisecond
	require.NoError(t, l.open(context.Background()))
	t.Cleanup(func() { _ = l.close() })

	srv.Close()
	l.mu.Lock()
	_ = l.conn.Close()
	l.mu.Unlock()

	require.NoError(t, l.send(context.Background(), []byte(`{"type":"frame"}`)))

	select {
	case <-l.dead:
	case <-time.After(5 * time.Second):
		t.Fatal("link was not marked dead after redial gave up")
	}

	assert.ErrorIs(t, l.send(context.Background(), []byte(`{}`)), errLinkDown)
	assert.ErrorIs(t, l.request(context.Background(), []byte(`{}`), streaming.TypeStartRun), errLinkDown)
}

func TestEventsByFrame(t *testing.T) {
	got := eventsByFrame([]core.Event{
		{Kind: core.EventPairCollision, Step: 0},
		{Kind: core.EventTerrainCollision, Step: 0},
		{Kind: core.EventArrival, Step: 3},
	})
	assert.Len(t, got[1], 2)
	assert.Len(t, got[4], 1)
	assert.Empty(t, got[0])
}
