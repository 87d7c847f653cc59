package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/codec"
)

const writeTimeout = 5 * time.Second

// WebSocket is the persistent full-duplex transport variant.
type WebSocket struct {
	url  string
	cfg  Config
	sink sink

	mu      sync.Mutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	open    bool
	closing bool
}

// NewWebSocket creates a websocket transport targeting the given ws:// or
// wss:// URL. Bind an event sink before calling Connect.
func NewWebSocket(url string, cfg Config) *WebSocket {
	return &WebSocket{
		url: url,
		cfg: cfg,
	}
}

// Kind identifies the variant.
func (t *WebSocket) Kind() Kind {
	return KindWebSocket
}

// Bind attaches the event sink.
func (t *WebSocket) Bind(ev Events) {
	t.sink.bind(ev)
}

// Detach removes the event sink.
func (t *WebSocket) Detach() {
	t.sink.detach()
}

// IsOpen reports whether the channel is currently open.
func (t *WebSocket) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Connect dials the server. The attempt resolves with exactly one OnOpen or
// OnClose within the connect timeout.
func (t *WebSocket) Connect() {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.connectTimeout())

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	go t.dial(ctx, cancel)
}

func (t *WebSocket) dial(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.connectTimeout(),
	}

	conn, resp, err := dialer.DialContext(ctx, t.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		var nerr net.Error
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded) ||
			(errors.As(err, &nerr) && nerr.Timeout())
		if timedOut {
			t.sink.close(ReasonTimeout, err)
		} else {
			// A canceled dial means ForceClose already emitted the
			// close event; sink.close is a no-op then.
			t.sink.close(ReasonError, err)
		}
		return
	}

	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		conn.Close()
		return
	}
	t.conn = conn
	t.open = true
	t.cancel = nil
	t.mu.Unlock()

	slog.Debug("[Transport] websocket open", "url", t.url)
	t.sink.open()

	go t.readLoop(conn)
}

func (t *WebSocket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			t.open = false
			closing := t.closing
			t.mu.Unlock()

			switch {
			case closing, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				t.sink.close(ReasonClose, err)
			default:
				t.sink.close(ReasonError, err)
			}
			return
		}
		t.sink.message(data)
	}
}

// Send writes one encoded message. Dropped with ErrNotOpen when not open.
func (t *WebSocket) Send(m *typesv1.SignalingMessage) error {
	data, err := codec.Encode(m)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open || t.conn == nil {
		return ErrNotOpen
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close performs a graceful shutdown: a close frame is written and the read
// loop reports the resulting close event.
func (t *WebSocket) Close() {
	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		return
	}
	t.closing = true
	conn := t.conn
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		deadline := time.Now().Add(writeTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}
}

// ForceClose aborts the transport and synthesizes a close event with the
// given reason, even if the channel never opened.
func (t *WebSocket) ForceClose(reason CloseReason) {
	t.mu.Lock()
	t.closing = true
	t.open = false
	conn := t.conn
	cancel := t.cancel
	t.mu.Unlock()

	// Emit first so a concurrent dial failure cannot race in a second
	// close event with the wrong reason.
	t.sink.close(reason, nil)

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}
