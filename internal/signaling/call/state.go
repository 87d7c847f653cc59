package call

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

// Stats carries per-attempt counters for diagnostics.
type Stats struct {
	MessagesIn        int
	MessagesOut       int
	Reconnects        int
	TransportSwitches int
	StartedAt         time.Time
}

// UiState is the aggregate view the machine derives for its consumers. It is
// owned exclusively by the machine: transports and UI never mutate it.
type UiState struct {
	Phase            Phase
	RoomID           string
	IsHost           bool
	ParticipantCount int

	LocalAudioOn  bool
	LocalVideoOn  bool
	RemoteAudioOn bool
	RemoteVideoOn bool

	IsReconnecting     bool
	SignalingConnected bool
	Transport          transport.Kind

	ICEState        webrtc.ICEConnectionState
	ConnectionState webrtc.PeerConnectionState
	SignalingState  webrtc.SignalingState

	ErrorMessage string
	Stats        Stats
}
