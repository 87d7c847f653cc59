// Package session maintains one logical signaling session across transport
// instances, applying the reconnection policy and presenting a single ordered
// event stream to its owner.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/codec"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrNotConnected indicates a send was dropped because no transport is
	// open. Callers needing guaranteed delivery re-send after EventOpen.
	ErrNotConnected = errors.New("session not connected")
)

// EventType classifies session events.
type EventType int

const (
	// EventOpen means a transport reached the open state.
	EventOpen EventType = iota
	// EventMessage carries one decoded inbound message.
	EventMessage
	// EventReconnecting means the transport closed and a reconnect attempt
	// is scheduled.
	EventReconnecting
	// EventDown means the reconnect attempt budget is exhausted.
	EventDown
	// EventClosed means the owner closed the session.
	EventClosed
)

// String returns the string representation of EventType.
func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventReconnecting:
		return "reconnecting"
	case EventDown:
		return "down"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is one entry of the session's outbound stream. Events are delivered
// in arrival order; the session performs no reordering or coalescing.
type Event struct {
	Type      EventType
	Message   *typesv1.SignalingMessage // EventMessage only
	Transport transport.Kind            // variant involved (for reconnecting: the next one)
	Reason    transport.CloseReason     // EventReconnecting / EventDown
	Attempt   int                       // EventReconnecting: 1-indexed attempt number
	Err       error
}

// slotState tags the owned transport slot.
type slotState int

const (
	slotDisconnected slotState = iota
	slotConnecting
	slotOpen
	slotReconnectPending
)

// String returns the string representation of slotState.
func (s slotState) String() string {
	switch s {
	case slotDisconnected:
		return "disconnected"
	case slotConnecting:
		return "connecting"
	case slotOpen:
		return "open"
	case slotReconnectPending:
		return "reconnect-pending"
	default:
		return "unknown"
	}
}

type trEventKind int

const (
	trOpen trEventKind = iota
	trClose
	trMessage
)

type trEvent struct {
	kind   trEventKind
	reason transport.CloseReason
	cause  error
	data   []byte
}

// Session owns exactly one active transport at a time. All state transitions
// happen on its run loop; transports feed it through an internal channel, so
// events reach the owner in arrival order.
type Session struct {
	dial     Dialer
	policy   Policy
	strategy Strategy

	events chan Event
	trCh   chan trEvent

	closeCh   chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	mu    sync.Mutex
	tr    transport.Transport
	state slotState
	kind  transport.Kind

	reconnecting atomic.Bool
}

// New creates a session. Call Start to begin connecting; the owner must
// consume Events.
func New(dial Dialer, policy Policy, strategy Strategy) *Session {
	if strategy == nil {
		strategy = AlternatingStrategy{Start: transport.KindWebSocket}
	}
	return &Session{
		dial:     dial,
		policy:   policy,
		strategy: strategy,
		events:   make(chan Event, 256),
		trCh:     make(chan trEvent, 64),
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Events returns the session's outbound event stream. The channel is closed
// after EventClosed.
func (s *Session) Events() <-chan Event {
	return s.events
}

// IsReconnecting reports whether the session is between a transport loss and
// the next successful open.
func (s *Session) IsReconnecting() bool {
	return s.reconnecting.Load()
}

// TransportKind returns the variant of the current transport slot.
func (s *Session) TransportKind() transport.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Send transmits one message over the open transport. When no transport is
// open the message is dropped, never buffered, and ErrNotConnected returned.
func (s *Session) Send(m *typesv1.SignalingMessage) error {
	s.mu.Lock()
	tr := s.tr
	open := s.state == slotOpen
	s.mu.Unlock()

	if !open || tr == nil {
		return ErrNotConnected
	}
	return tr.Send(m)
}

// Start launches the session run loop and the first connect attempt.
func (s *Session) Start() {
	go s.run()
}

// Close shuts the session down: any pending backoff timer is stopped, an
// in-flight connect aborted, and no further reconnects are scheduled.
// Idempotent and safe to call multiple times. Closing intent is an explicit
// flag; close reason strings are never inspected.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
}

func (s *Session) run() {
	defer close(s.done)

	bo := s.policy.newBackOff()
	attempt := 0
	down := false
	kind := s.strategy.First()

	var timer *time.Timer
	var timerC <-chan time.Time

	s.connect(kind)

	for {
		select {
		case <-s.closeCh:
			if timer != nil {
				timer.Stop()
			}
			s.teardown()
			s.emit(Event{Type: EventClosed})
			close(s.events)
			return

		case ev := <-s.trCh:
			switch ev.kind {
			case trOpen:
				attempt = 0
				bo.Reset()
				s.setState(slotOpen)
				s.reconnecting.Store(false)
				slog.Info("[Session] transport open", "transport", kind)
				s.emit(Event{Type: EventOpen, Transport: kind})

			case trMessage:
				m, err := codec.Decode(ev.data)
				if err != nil {
					// Protocol error: drop the one message, the
					// stream continues.
					slog.Warn("[Session] dropping malformed message", "error", err)
					continue
				}
				s.emit(Event{Type: EventMessage, Message: m, Transport: kind})

			case trClose:
				if down {
					continue
				}
				s.clearTransport()
				s.reconnecting.Store(true)
				attempt++

				if s.policy.MaxAttempts > 0 && attempt > s.policy.MaxAttempts {
					down = true
					s.reconnecting.Store(false)
					slog.Error("[Session] reconnect attempts exhausted",
						"attempts", attempt-1, "reason", ev.reason)
					s.emit(Event{Type: EventDown, Reason: ev.reason, Err: ev.cause})
					continue
				}

				delay := bo.NextBackOff()
				kind = s.strategy.Next(kind)
				s.setState(slotReconnectPending)
				slog.Warn("[Session] transport closed, reconnecting",
					"reason", ev.reason, "attempt", attempt, "delay", delay, "next", kind)
				s.emit(Event{Type: EventReconnecting, Reason: ev.reason, Attempt: attempt, Transport: kind})

				timer = time.NewTimer(delay)
				timerC = timer.C
			}

		case <-timerC:
			timerC = nil
			s.connect(kind)
		}
	}
}

// connect replaces the transport slot with a fresh instance of the given
// variant and starts its connect attempt.
func (s *Session) connect(kind transport.Kind) {
	tr := s.dial(kind)
	tr.Bind(transport.Events{
		OnOpen:    func() { s.push(trEvent{kind: trOpen}) },
		OnClose:   func(reason transport.CloseReason, cause error) { s.push(trEvent{kind: trClose, reason: reason, cause: cause}) },
		OnMessage: func(data []byte) { s.push(trEvent{kind: trMessage, data: data}) },
	})

	s.mu.Lock()
	s.tr = tr
	s.state = slotConnecting
	s.kind = kind
	s.mu.Unlock()

	slog.Debug("[Session] connecting", "transport", kind)
	tr.Connect()
}

// clearTransport drops a transport that already reported close. Detach comes
// before discarding the handle so a dying instance cannot emit stale events.
func (s *Session) clearTransport() {
	s.mu.Lock()
	tr := s.tr
	s.tr = nil
	s.state = slotDisconnected
	s.mu.Unlock()

	if tr != nil {
		tr.Detach()
	}
}

// teardown aborts whatever the slot currently holds.
func (s *Session) teardown() {
	s.mu.Lock()
	tr := s.tr
	s.tr = nil
	s.state = slotDisconnected
	s.mu.Unlock()

	s.reconnecting.Store(false)

	if tr != nil {
		tr.Detach()
		tr.ForceClose(transport.ReasonForced)
	}
}

func (s *Session) setState(state slotState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) push(ev trEvent) {
	select {
	case s.trCh <- ev:
	case <-s.done:
	}
}

func (s *Session) emit(ev Event) {
	s.events <- ev
}
