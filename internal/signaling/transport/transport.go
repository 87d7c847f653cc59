// Package transport provides the two signaling transport variants: a
// persistent WebSocket channel and an event-stream receive channel with
// per-message POST sends.
package transport

import (
	"errors"
	"sync"
	"time"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
)

// DefaultConnectTimeout bounds how long a connect attempt may stay
// unresolved before the transport self-aborts with reason "timeout".
const DefaultConnectTimeout = 10 * time.Second

// Kind identifies a transport variant.
type Kind int

const (
	// KindWebSocket is the persistent full-duplex socket variant.
	KindWebSocket Kind = iota
	// KindEventStream is the server-sent-events receive variant with
	// fire-and-forget POST sends.
	KindEventStream
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindWebSocket:
		return "websocket"
	case KindEventStream:
		return "sse"
	default:
		return "unknown"
	}
}

// ParseKind parses a transport kind name.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "websocket", "ws":
		return KindWebSocket, true
	case "sse", "eventstream":
		return KindEventStream, true
	default:
		return KindWebSocket, false
	}
}

// CloseReason explains why a transport closed.
type CloseReason string

const (
	// ReasonClose is a normal close of the underlying channel.
	ReasonClose CloseReason = "close"
	// ReasonTimeout means the connect attempt did not reach open in time.
	ReasonTimeout CloseReason = "timeout"
	// ReasonGone means the server reported the session id no longer valid.
	ReasonGone CloseReason = "gone"
	// ReasonError is an abnormal failure of the channel.
	ReasonError CloseReason = "error"
	// ReasonForced is an owner-initiated abort via ForceClose.
	ReasonForced CloseReason = "forced"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrNotOpen indicates a send was dropped because the transport is not open.
	ErrNotOpen = errors.New("transport not open")
)

// Events is the sink a transport reports to. Any handler may be nil.
type Events struct {
	OnOpen    func()
	OnClose   func(reason CloseReason, cause error)
	OnMessage func(data []byte)
}

// Transport is one concrete connection mechanism to the signaling server.
// Connect is asynchronous; completion is always reported through the bound
// Events sink, never by blocking the caller. Owners must Detach before
// discarding an instance so a dying transport cannot emit stale events.
type Transport interface {
	// Connect starts the connect attempt. Exactly one OnOpen or OnClose
	// follows within the connect timeout.
	Connect()

	// Close performs a graceful shutdown.
	Close()

	// ForceClose aborts the transport, synthesizing a close event with the
	// given reason even if the channel never opened.
	ForceClose(reason CloseReason)

	// Send transmits one message. Returns ErrNotOpen (message dropped, not
	// queued) when the transport is not open.
	Send(m *typesv1.SignalingMessage) error

	// IsOpen reports whether the channel is currently open.
	IsOpen() bool

	// Kind identifies the variant.
	Kind() Kind

	// Bind attaches the event sink. Must be called before Connect.
	Bind(ev Events)

	// Detach removes the event sink; no events are emitted afterwards.
	Detach()
}

// SessionIdentifier is the optional capability of transports that address
// the server by a locally generated session id (the event-stream variant).
type SessionIdentifier interface {
	SessionID() string
}

// Config holds per-transport settings.
type Config struct {
	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
	}
}

func (c Config) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

// sink serializes event emission, honors Detach, and guarantees at most one
// close event per transport instance.
type sink struct {
	mu     sync.Mutex
	ev     Events
	closed bool
}

func (s *sink) bind(ev Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ev = ev
}

func (s *sink) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ev = Events{}
}

func (s *sink) open() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn := s.ev.OnOpen
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *sink) message(data []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn := s.ev.OnMessage
	s.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// close emits the close event. Only the first call wins; it reports whether
// this call was the winner.
func (s *sink) close(reason CloseReason, cause error) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	fn := s.ev.OnClose
	s.mu.Unlock()
	if fn != nil {
		fn(reason, cause)
	}
	return true
}
