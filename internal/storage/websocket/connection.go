package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/harborlab/shipsim/pkg/streaming"
	"github.com/rs/zerolog"
)

const (
	outboxSize  = 1024
	ackBuffer   = 16
	maxRedials  = 8
	maxBackoff  = 15 * time.Second
	writeWait   = 10 * time.Second
	dialTimeout = 5 * time.Second
	ackTimeout  = 10 * time.Second
)

// errLinkDown is returned once the writer has given up reconnecting.
var errLinkDown = errors.New("websocket link down")

// link is a viewer connection with one writer goroutine. A failed write
// redials in place and retries the message, so frames are not lost across a
// reconnect. The start_run of the run in flight is replayed on every redial.
type link struct {
	url    string
	dialer ws.Dialer
	log    zerolog.Logger

	redials int
	backoff time.Duration

	outbox chan []byte
	acks   chan streaming.AckMessage
	done   chan struct{}
	once   sync.Once
	dead   chan struct{} // closed when pump exits without close

	mu     sync.Mutex
	conn   *ws.Conn
	replay []byte
}

func newLink(rawURL, secret string, log zerolog.Logger) (*link, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()

	return &link{
		url:    u.String(),
		dialer:  ws.Dialer{HandshakeTimeout: dialTimeout},
		log:     log,
		redials: maxRedials,
		backoff: 500 * time.Millisecond,
		outbox:  make(chan []byte, outboxSize),
		acks:    make(chan streaming.AckMessage, ackBuffer),
		done:    make(chan struct{}),
		dead:    make(chan struct{}),
	}, nil
}

// open dials once and starts the writer and reader.
func (l *link) open(ctx context.Context) error {
	conn, err := l.dial(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.listen(conn)
	go l.pump(conn)
	return nil
}

func (l *link) dial(ctx context.Context) (*ws.Conn, error) {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

// pump is the only writer. It owns conn until it is replaced by redial.
// When redial gives up the link is marked dead and queued frames are dropped.
func (l *link) pump(conn *ws.Conn) {
	defer func() {
		select {
		case <-l.done:
		default:
			close(l.dead)
		}
	}()
	for {
		select {
		case <-l.done:
			return
		case data := <-l.outbox:
			for {
				err := write(conn, data)
				if err == nil {
					break
				}
				l.log.Warn().Err(err).Msg("WebSocket write failed")
				if conn = l.redial(conn); conn == nil {
					return
				}
			}
		}
	}
}

// listen routes acks to the waiting sender until the connection fails.
func (l *link) listen(conn *ws.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				l.log.Debug().Err(err).Msg("WebSocket read stopped")
				// the next write fails and redials
				_ = conn.Close()
			}
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.log.Debug().Str("raw", string(msg)).Msg("Ignoring non-ack message")
			continue
		}
		select {
		case l.acks <- ack:
		default:
			l.log.Debug().Str("for", ack.For).Msg("Ack buffer full, dropping")
		}
	}
}

// redial replaces a broken connection, backing off between attempts. It
// returns nil when the link is closed or every attempt failed.
func (l *link) redial(old *ws.Conn) *ws.Conn {
	_ = old.Close()

	backoff := l.backoff
	for attempt := 1; attempt <= l.redials; attempt++ {
		select {
		case <-l.done:
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		conn, err := l.dial(ctx)
		cancel()
		if err != nil {
			l.log.Warn().Int("attempt", attempt).Err(err).Msg("WebSocket redial failed")
			continue
		}

		l.mu.Lock()
		replay := l.replay
		l.mu.Unlock()
		if replay != nil {
			if err := write(conn, replay); err != nil {
				l.log.Warn().Err(err).Msg("Failed to replay start_run")
				_ = conn.Close()
				continue
			}
		}

		l.mu.Lock()
		l.conn = conn
		l.mu.Unlock()
		go l.listen(conn)

		l.log.Info().Int("attempt", attempt).Msg("WebSocket reconnected")
		return conn
	}

	l.log.Error().Int("attempts", l.redials).Msg("Giving up on WebSocket reconnect")
	return nil
}

// setReplay sets the message sent first after a redial. nil clears it.
func (l *link) setReplay(data []byte) {
	l.mu.Lock()
	l.replay = data
	l.mu.Unlock()
}

// send queues data for the writer, blocking while the outbox is full. It
// fails with errLinkDown once the writer has stopped.
func (l *link) send(ctx context.Context, data []byte) error {
	select {
	case <-l.dead:
		return errLinkDown
	case <-l.done:
		return fmt.Errorf("websocket closed")
	default:
	}
	select {
	case <-l.dead:
		return errLinkDown
	case l.outbox <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return fmt.Errorf("websocket closed")
	}
}

// request sends data and waits for the ack naming ackFor. Without a context
// deadline the wait is capped at ackTimeout.
func (l *link) request(ctx context.Context, data []byte, ackFor string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ackTimeout)
		defer cancel()
	}
	if err := l.send(ctx, data); err != nil {
		return fmt.Errorf("sending %s: %w", ackFor, err)
	}
	for {
		select {
		case ack := <-l.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s ack: %w", ackFor, ctx.Err())
		case <-l.done:
			return fmt.Errorf("websocket closed while waiting for %s ack", ackFor)
		case <-l.dead:
			return fmt.Errorf("waiting for %s ack: %w", ackFor, errLinkDown)
		}
	}
}

// close sends a close frame and stops the writer and reader.
func (l *link) close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		l.mu.Lock()
		conn := l.conn
		l.conn = nil
		l.mu.Unlock()
		if conn == nil {
			return
		}
		_ = conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = conn.Close()
	})
	return err
}
