package call

import (
	"log/slog"
	"sync"
	"time"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/media"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/roomstatus"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/session"
)

// SendFunc transmits one outbound message; typically Session.Send. A send
// failure means the message is dropped, and the machine re-sends what matters
// after the next open event.
type SendFunc func(*typesv1.SignalingMessage) error

// Config wires a machine to its collaborators.
type Config struct {
	// ClientID identifies this client in envelopes and host comparisons.
	ClientID string

	// Send transmits outbound messages. Optional; nil drops them.
	Send SendFunc

	// Media is the media-engine boundary. Optional.
	Media media.Engine

	// Rooms receives room-status merges. Optional.
	Rooms *roomstatus.Table
}

// Machine is the call-phase state machine. It consumes local actions,
// session events, and media events one at a time and owns the derived
// UiState exclusively.
type Machine struct {
	mu        sync.Mutex
	cfg       Config
	state     UiState
	listeners []func(UiState)
	outbox    []*typesv1.SignalingMessage

	// join-recovery inputs
	hint         int  // last authoritative participant count for the room, 0 = none
	preferInCall bool // live peer traffic observed this attempt
}

// New creates a machine in the idle phase.
func New(cfg Config) *Machine {
	return &Machine{
		cfg: cfg,
		state: UiState{
			Phase:        PhaseIdle,
			LocalAudioOn: true,
			LocalVideoOn: true,
		},
	}
}

// Snapshot returns a copy of the current UiState.
func (m *Machine) Snapshot() UiState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers a listener that receives a UiState snapshot after every
// applied event.
func (m *Machine) OnChange(fn func(UiState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// apply runs one event under the lock, then delivers queued sends and
// listener notifications outside it.
func (m *Machine) apply(fn func() error) error {
	m.mu.Lock()
	err := fn()
	snap := m.state
	listeners := make([]func(UiState), len(m.listeners))
	copy(listeners, m.listeners)
	out := m.outbox
	m.outbox = nil
	m.mu.Unlock()

	for _, msg := range out {
		if m.cfg.Send == nil {
			continue
		}
		if err := m.cfg.Send(msg); err != nil {
			slog.Warn("[Call] outbound message dropped", "type", msg.Type, "error", err)
		}
	}
	for _, l := range listeners {
		l(snap)
	}
	return err
}

// transition moves to the next phase, rejecting anything validTransitions
// does not allow. The state is left unchanged on rejection.
func (m *Machine) transition(to Phase, action string) error {
	if m.state.Phase == to {
		return nil
	}
	if !m.state.Phase.CanTransitionTo(to) {
		err := &StateTransitionError{From: m.state.Phase, To: to, Action: action}
		slog.Warn("[Call] rejected transition", "from", m.state.Phase, "to", to, "action", action)
		return err
	}
	slog.Debug("[Call] phase transition", "from", m.state.Phase, "to", to, "action", action)
	m.state.Phase = to
	return nil
}

func (m *Machine) queue(msg *typesv1.SignalingMessage) {
	msg.ClientID = m.cfg.ClientID
	m.outbox = append(m.outbox, msg)
	m.state.Stats.MessagesOut++
}

func (m *Machine) queueJoin() {
	m.queue(&typesv1.SignalingMessage{
		Type:   typesv1.TypeJoin,
		RoomID: m.state.RoomID,
	})
}

// StartCall begins a new call attempt with no existing room id.
func (m *Machine) StartCall() error {
	return m.apply(func() error {
		if err := m.transition(PhaseCreatingRoom, "start call"); err != nil {
			return err
		}
		m.resetAttempt()
		return nil
	})
}

// RoomCreated reports that the server allocated a room id for this attempt.
func (m *Machine) RoomCreated(rid string) error {
	return m.apply(func() error {
		if err := m.transition(PhaseJoining, "room created"); err != nil {
			return err
		}
		m.state.RoomID = rid
		m.state.IsHost = true
		m.queueJoin()
		return nil
	})
}

// JoinRoom begins a call attempt into an existing room.
func (m *Machine) JoinRoom(rid string) error {
	return m.apply(func() error {
		if err := m.transition(PhaseJoining, "join room"); err != nil {
			return err
		}
		m.resetAttempt()
		m.state.RoomID = rid
		m.queueJoin()
		return nil
	})
}

// HangUp ends the call locally.
func (m *Machine) HangUp() error {
	return m.apply(func() error {
		if err := m.transition(PhaseEnding, "hang up"); err != nil {
			return err
		}
		m.queue(&typesv1.SignalingMessage{Type: typesv1.TypeBye, RoomID: m.state.RoomID})
		return nil
	})
}

// TeardownComplete reports that teardown finished; the attempt's state is
// discarded and the machine returns to idle.
func (m *Machine) TeardownComplete() error {
	return m.apply(func() error {
		if err := m.transition(PhaseIdle, "teardown complete"); err != nil {
			return err
		}
		m.resetAttempt()
		m.state.RoomID = ""
		m.state.IsHost = false
		return nil
	})
}

// DismissError acknowledges an error, returning to idle.
func (m *Machine) DismissError() error {
	return m.apply(func() error {
		if err := m.transition(PhaseIdle, "dismiss error"); err != nil {
			return err
		}
		m.state.ErrorMessage = ""
		m.resetAttempt()
		m.state.RoomID = ""
		m.state.IsHost = false
		return nil
	})
}

// Fail surfaces an application error: phase moves to error carrying a
// human-readable message, recoverable only by DismissError.
func (m *Machine) Fail(message string) error {
	return m.apply(func() error {
		return m.fail(message)
	})
}

func (m *Machine) fail(message string) error {
	if err := m.transition(PhaseError, "failure"); err != nil {
		return err
	}
	m.state.ErrorMessage = message
	m.state.IsReconnecting = false
	return nil
}

// SetLocalAudio toggles the local audio flag and announces it to the peer.
func (m *Machine) SetLocalAudio(on bool) {
	_ = m.apply(func() error {
		m.state.LocalAudioOn = on
		m.queueMute()
		return nil
	})
}

// SetLocalVideo toggles the local video flag and announces it to the peer.
func (m *Machine) SetLocalVideo(on bool) {
	_ = m.apply(func() error {
		m.state.LocalVideoOn = on
		m.queueMute()
		return nil
	})
}

func (m *Machine) queueMute() {
	if m.state.RoomID == "" {
		return
	}
	m.queue(&typesv1.SignalingMessage{
		Type:   typesv1.TypeMute,
		RoomID: m.state.RoomID,
		Payload: typesv1.MuteInfo{
			CID:   m.cfg.ClientID,
			Audio: m.state.LocalAudioOn,
			Video: m.state.LocalVideoOn,
		},
	})
}

// SetParticipantHint feeds an out-of-band participant count (e.g. a room
// status probe fired after reconnect) into join recovery.
func (m *Machine) SetParticipantHint(count int) {
	_ = m.apply(func() error {
		m.hint = count
		return nil
	})
}

// resetAttempt clears per-attempt state. The room-status table deliberately
// survives; it is process-lifetime state.
func (m *Machine) resetAttempt() {
	m.state.ParticipantCount = 0
	m.state.ErrorMessage = ""
	m.state.IsReconnecting = false
	m.state.RemoteAudioOn = false
	m.state.RemoteVideoOn = false
	m.state.Stats = Stats{StartedAt: time.Now()}
	m.hint = 0
	m.preferInCall = false
}

// HandleSessionEvent consumes one session event.
func (m *Machine) HandleSessionEvent(ev session.Event) {
	_ = m.apply(func() error {
		switch ev.Type {
		case session.EventOpen:
			m.handleOpen(ev)
		case session.EventReconnecting:
			m.handleReconnecting()
		case session.EventDown:
			return m.fail("signaling connection lost")
		case session.EventClosed:
			m.state.SignalingConnected = false
			m.state.IsReconnecting = false
		case session.EventMessage:
			m.handleMessage(ev.Message)
		}
		return nil
	})
}

func (m *Machine) handleOpen(ev session.Event) {
	wasReconnecting := m.state.IsReconnecting
	if m.state.SignalingConnected || wasReconnecting {
		if m.state.Transport != ev.Transport {
			m.state.Stats.TransportSwitches++
		}
	}
	m.state.SignalingConnected = true
	m.state.IsReconnecting = false
	m.state.Transport = ev.Transport

	// Reconnected mid-join: pick a consistent view instead of presenting
	// an ambiguous in-between UI. Only a regained connection triggers
	// recovery; the initial open of an attempt waits for the server ack.
	if wasReconnecting {
		if rec, ok := ResolveJoinRecovery(m.state.Phase, m.hint, m.preferInCall); ok {
			if err := m.transition(rec.Phase, "join recovery"); err == nil {
				m.state.ParticipantCount = rec.ParticipantCount
			}
		}
	}

	// Re-associate with the room on the fresh transport.
	if m.state.RoomID != "" && m.state.Phase.Active() {
		m.queueJoin()
	}
}

func (m *Machine) handleReconnecting() {
	m.state.SignalingConnected = false
	if !m.state.Phase.Active() {
		return
	}
	// A transport-level disconnect keeps the current phase; resolution is
	// deferred to join recovery once connectivity returns.
	m.state.IsReconnecting = true
	m.state.Stats.Reconnects++
}

func (m *Machine) handleMessage(msg *typesv1.SignalingMessage) {
	m.state.Stats.MessagesIn++

	switch msg.Type {
	case typesv1.TypeJoined:
		m.handleJoined(msg)

	case typesv1.TypePeerJoined:
		m.setParticipantCount(m.participantCountFrom(msg, m.state.ParticipantCount+1))
		if m.state.Phase == PhaseJoining || m.state.Phase == PhaseWaiting {
			_ = m.transition(PhaseInCall, "peer joined")
		}

	case typesv1.TypePeerLeft:
		count := m.participantCountFrom(msg, m.state.ParticipantCount-1)
		if count < 1 {
			count = 1
		}
		m.setParticipantCount(count)

	case typesv1.TypeOffer:
		m.forwardToMedia(msg, func(e media.Engine) error { return e.HandleOffer(msg.Payload) })
	case typesv1.TypeAnswer:
		m.forwardToMedia(msg, func(e media.Engine) error { return e.HandleAnswer(msg.Payload) })
	case typesv1.TypeCandidate:
		m.forwardToMedia(msg, func(e media.Engine) error { return e.HandleCandidate(msg.Payload) })

	case typesv1.TypeBye:
		_ = m.transition(PhaseEnding, "remote hangup")

	case typesv1.TypeError:
		var info typesv1.ErrorInfo
		if err := typesv1.PayloadInto(msg.Payload, &info); err != nil || info.Message == "" {
			info.Message = "signaling error"
		}
		_ = m.fail(info.Message)

	case typesv1.TypeRoomStatus:
		if counts, ok := typesv1.AsCounts(msg.Payload); ok {
			if m.cfg.Rooms != nil {
				m.cfg.Rooms.ApplySnapshot(counts)
			}
			if count, ok := counts[m.state.RoomID]; ok {
				m.hint = count
			}
		} else {
			slog.Warn("[Call] malformed room-status payload")
		}

	case typesv1.TypeRoomDelta:
		var delta typesv1.RoomDelta
		if err := typesv1.PayloadInto(msg.Payload, &delta); err != nil || delta.RID == "" {
			slog.Warn("[Call] malformed room-delta payload")
			return
		}
		if m.cfg.Rooms != nil {
			m.cfg.Rooms.ApplyDelta(delta.RID, delta.Count)
		}
		if delta.RID == m.state.RoomID {
			m.hint = delta.Count
		}

	case typesv1.TypeMute:
		var info typesv1.MuteInfo
		if err := typesv1.PayloadInto(msg.Payload, &info); err != nil {
			slog.Warn("[Call] malformed mute payload")
			return
		}
		if info.CID != m.cfg.ClientID {
			m.state.RemoteAudioOn = info.Audio
			m.state.RemoteVideoOn = info.Video
		}

	case typesv1.TypePing:
		m.queue(&typesv1.SignalingMessage{Type: typesv1.TypePong})

	case typesv1.TypePong:
		// keepalive answer, nothing to do

	default:
		slog.Debug("[Call] ignoring message", "type", msg.Type)
	}
}

// handleJoined applies the authoritative room snapshot from the server.
func (m *Machine) handleJoined(msg *typesv1.SignalingMessage) {
	var rs typesv1.RoomState
	if err := typesv1.PayloadInto(msg.Payload, &rs); err != nil {
		slog.Warn("[Call] malformed joined payload", "error", err)
		return
	}

	if msg.RoomID != "" {
		m.state.RoomID = msg.RoomID
	}
	m.state.IsHost = rs.HostCID == m.cfg.ClientID

	count := len(rs.Participants)
	m.setParticipantCount(count)

	for _, p := range rs.Participants {
		if p.CID != m.cfg.ClientID {
			m.state.RemoteAudioOn = p.AudioOn
			m.state.RemoteVideoOn = p.VideoOn
		}
	}

	if count >= 2 {
		_ = m.transition(PhaseInCall, "join acknowledged")
	} else {
		_ = m.transition(PhaseWaiting, "join acknowledged")
	}
}

func (m *Machine) setParticipantCount(count int) {
	m.state.ParticipantCount = count
	m.hint = count
}

// participantCountFrom prefers an explicit count in the payload over the
// locally inferred fallback.
func (m *Machine) participantCountFrom(msg *typesv1.SignalingMessage, fallback int) int {
	if obj, ok := typesv1.AsObject(msg.Payload); ok {
		if n, ok := typesv1.AsInt(obj["count"]); ok {
			return n
		}
	}
	return fallback
}

func (m *Machine) forwardToMedia(msg *typesv1.SignalingMessage, fn func(media.Engine) error) {
	if m.cfg.Media == nil {
		return
	}
	if err := fn(m.cfg.Media); err != nil {
		slog.Warn("[Call] media engine rejected payload", "type", msg.Type, "error", err)
	}
}

// HandleMediaEvent consumes one media-engine state change.
func (m *Machine) HandleMediaEvent(ev media.StateEvent) {
	_ = m.apply(func() error {
		m.state.ICEState = ev.ICE
		m.state.ConnectionState = ev.Connection
		m.state.SignalingState = ev.Signaling
		if ev.RemoteTrack {
			// Live peer traffic outweighs a stale participant count
			// during join recovery.
			m.preferInCall = true
		}
		return nil
	})
}
