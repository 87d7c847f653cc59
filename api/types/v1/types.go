// Package types defines the shared wire types for the Serenada signaling protocol.
package types

import "github.com/pion/webrtc/v4"

// ProtocolVersion is the signaling protocol version stamped into every envelope.
const ProtocolVersion = 1

// Message type values carried in SignalingMessage.Type. Unknown values are not
// rejected at the codec level; disposition belongs to the call state machine.
const (
	TypeJoin       = "join"
	TypeJoined     = "joined"
	TypePeerJoined = "peer-joined"
	TypePeerLeft   = "peer-left"
	TypeOffer      = "offer"
	TypeAnswer     = "answer"
	TypeCandidate  = "candidate"
	TypeBye        = "bye"
	TypeError      = "error"
	TypeRoomStatus = "room-status"
	TypeRoomDelta  = "room-delta"
	TypeMute       = "mute"
	TypePing       = "ping"
	TypePong       = "pong"
)

// SignalingMessage is the wire envelope exchanged with the coordination server.
// Type is required and non-empty; every other field is optional.
type SignalingMessage struct {
	V         int    `json:"v"`
	Type      string `json:"type"`
	RoomID    string `json:"rid,omitempty"`
	SessionID string `json:"sid,omitempty"`
	ClientID  string `json:"cid,omitempty"`
	To        string `json:"to,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// Participant is one member of a room as reported by the server.
type Participant struct {
	CID     string `json:"cid"`
	AudioOn bool   `json:"audio_on"`
	VideoOn bool   `json:"video_on"`
}

// RoomState is the authoritative room snapshot carried by a "joined" message.
// It supersedes any locally inferred participant count.
type RoomState struct {
	HostCID      string        `json:"host_cid"`
	Participants []Participant `json:"participants"`
}

// ErrorInfo is the payload of an "error" message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomDelta is the payload of a "room-delta" message: one room's new count.
type RoomDelta struct {
	RID   string `json:"rid"`
	Count int    `json:"count"`
}

// MuteInfo is the payload of a "mute" message.
type MuteInfo struct {
	CID   string `json:"cid"`
	Audio bool   `json:"audio"`
	Video bool   `json:"video"`
}

// AllocateRoomResponse is the response from POST /api/rooms.
type AllocateRoomResponse struct {
	RID string `json:"rid"`
}

// TurnResponse is the response from GET /api/turn.
type TurnResponse struct {
	ICEServers []webrtc.ICEServer `json:"ice_servers"`
}

// RoomStatusResponse is the response from GET /api/rooms/{rid}/status.
type RoomStatusResponse struct {
	RID   string `json:"rid"`
	Count int    `json:"count"`
}
