package transport

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"
	backoffv1 "gopkg.in/cenkalti/backoff.v1"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/codec"
)

// EventStream is the polling transport variant: a server-sent-events stream
// for receiving, addressed by a locally generated session id, and an
// independent fire-and-forget POST per outbound message carrying the same id.
type EventStream struct {
	baseURL string
	sid     string
	cfg     Config
	sink    sink
	http    *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	timer  *time.Timer
	open   bool
}

// NewEventStream creates an event-stream transport for the given /sse base
// URL. The session id is generated here and is stable for the transport's
// lifetime.
func NewEventStream(baseURL string, cfg Config) *EventStream {
	return &EventStream{
		baseURL: baseURL,
		sid:     uuid.NewString(),
		cfg:     cfg,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Kind identifies the variant.
func (t *EventStream) Kind() Kind {
	return KindEventStream
}

// SessionID returns the locally generated session identifier.
func (t *EventStream) SessionID() string {
	return t.sid
}

// Bind attaches the event sink.
func (t *EventStream) Bind(ev Events) {
	t.sink.bind(ev)
}

// Detach removes the event sink.
func (t *EventStream) Detach() {
	t.sink.detach()
}

// IsOpen reports whether the stream is currently open.
func (t *EventStream) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

func (t *EventStream) streamURL() string {
	return t.baseURL + "?sid=" + t.sid
}

// Connect opens the receive stream. Resolves with exactly one OnOpen or
// OnClose within the connect timeout.
func (t *EventStream) Connect() {
	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.cancel = cancel
	t.timer = time.AfterFunc(t.cfg.connectTimeout(), func() {
		t.ForceClose(ReasonTimeout)
	})
	t.mu.Unlock()

	client := sse.NewClient(t.streamURL())
	// The library's own reconnect is disabled: reconnection policy belongs
	// to the owning session, not the transport.
	client.ReconnectStrategy = &backoffv1.StopBackOff{}
	client.OnConnect(func(*sse.Client) {
		t.handleOpen()
	})

	go func() {
		err := client.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
			if len(msg.Data) > 0 {
				t.sink.message(msg.Data)
			}
		})
		t.mu.Lock()
		t.open = false
		t.stopTimerLocked()
		t.mu.Unlock()
		t.sink.close(ReasonClose, err)
	}()
}

func (t *EventStream) handleOpen() {
	t.mu.Lock()
	if t.open {
		t.mu.Unlock()
		return
	}
	t.open = true
	t.stopTimerLocked()
	t.mu.Unlock()

	slog.Debug("[Transport] event stream open", "sid", t.sid)
	t.sink.open()
}

func (t *EventStream) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Send posts one encoded message. The request is fire-and-forget: the caller
// does not wait for completion. An HTTP 410 response means the session id is
// no longer valid server-side and closes the transport with reason "gone".
func (t *EventStream) Send(m *typesv1.SignalingMessage) error {
	data, err := codec.Encode(m)
	if err != nil {
		return err
	}

	t.mu.Lock()
	open := t.open
	t.mu.Unlock()
	if !open {
		return ErrNotOpen
	}

	go t.post(data)
	return nil
}

func (t *EventStream) post(data []byte) {
	resp, err := t.http.Post(t.streamURL(), "application/json", bytes.NewReader(data))
	if err != nil {
		slog.Warn("[Transport] event stream send failed", "sid", t.sid, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		slog.Warn("[Transport] event stream session gone", "sid", t.sid)
		t.shutdown(ReasonGone)
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("[Transport] event stream send rejected", "sid", t.sid, "status", resp.StatusCode)
	}
}

// Close tears down the stream.
func (t *EventStream) Close() {
	t.shutdown(ReasonClose)
}

// ForceClose aborts the transport and synthesizes a close event with the
// given reason, even if the stream never opened.
func (t *EventStream) ForceClose(reason CloseReason) {
	t.shutdown(reason)
}

func (t *EventStream) shutdown(reason CloseReason) {
	t.mu.Lock()
	t.open = false
	t.stopTimerLocked()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	// Emit before canceling so the subscription goroutine's own close
	// attempt loses the exactly-once race.
	t.sink.close(reason, nil)

	if cancel != nil {
		cancel()
	}
}
