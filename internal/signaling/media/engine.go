// Package media defines the boundary to the external media engine. The
// signaling core forwards offer/answer/candidate payloads to it and consumes
// its connection-state events; it never performs media transport itself.
package media

import "github.com/pion/webrtc/v4"

// StateEvent is one connection-state change reported by the media engine.
type StateEvent struct {
	ICE         webrtc.ICEConnectionState
	Connection  webrtc.PeerConnectionState
	Signaling   webrtc.SignalingState
	RemoteTrack bool // a remote media track has been observed
}

// Engine consumes signaling payloads and emits connection-state changes.
type Engine interface {
	// HandleOffer processes a remote SDP offer payload.
	HandleOffer(payload any) error

	// HandleAnswer processes a remote SDP answer payload.
	HandleAnswer(payload any) error

	// HandleCandidate processes a remote ICE candidate payload.
	HandleCandidate(payload any) error

	// StateEvents is the engine's outbound state stream.
	StateEvents() <-chan StateEvent

	// Close releases the engine.
	Close() error
}

// NullEngine is a no-op engine for tests and signaling-only probes. Emit
// pushes synthetic state events to its stream.
type NullEngine struct {
	events chan StateEvent
}

// NewNullEngine creates a NullEngine.
func NewNullEngine() *NullEngine {
	return &NullEngine{
		events: make(chan StateEvent, 16),
	}
}

// HandleOffer implements Engine.
func (e *NullEngine) HandleOffer(payload any) error { return nil }

// HandleAnswer implements Engine.
func (e *NullEngine) HandleAnswer(payload any) error { return nil }

// HandleCandidate implements Engine.
func (e *NullEngine) HandleCandidate(payload any) error { return nil }

// StateEvents implements Engine.
func (e *NullEngine) StateEvents() <-chan StateEvent {
	return e.events
}

// Emit pushes a synthetic state event.
func (e *NullEngine) Emit(ev StateEvent) {
	e.events <- ev
}

// Close implements Engine.
func (e *NullEngine) Close() error {
	return nil
}
