package devserver

import (
	"log/slog"

	"github.com/google/uuid"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/codec"
)

// room holds the members of one call.
type room struct {
	rid     string
	host    string
	members map[string]*client // cid -> client
}

func (rm *room) state() typesv1.RoomState {
	parts := make([]typesv1.Participant, 0, len(rm.members))
	for cid := range rm.members {
		parts = append(parts, typesv1.Participant{CID: cid, AudioOn: true, VideoOn: true})
	}
	return typesv1.RoomState{HostCID: rm.host, Participants: parts}
}

// dispatch routes one inbound frame from a client.
func (s *Server) dispatch(c *client, data []byte) {
	msg, err := codec.Decode(data)
	if err != nil {
		slog.Warn("[DevServer] dropping malformed message", "error", err)
		return
	}

	switch msg.Type {
	case typesv1.TypeJoin:
		s.join(c, msg)
	case typesv1.TypeOffer, typesv1.TypeAnswer, typesv1.TypeCandidate, typesv1.TypeMute:
		s.relay(c, msg)
	case typesv1.TypeBye:
		s.relay(c, msg)
	case typesv1.TypePing:
		s.sendMsg(c, &typesv1.SignalingMessage{Type: typesv1.TypePong})
	case typesv1.TypePong:
		// heartbeat answer
	default:
		slog.Debug("[DevServer] ignoring message", "type", msg.Type)
	}
}

func (s *Server) join(c *client, msg *typesv1.SignalingMessage) {
	rid := msg.RoomID
	if rid == "" {
		s.sendError(c, "bad-join", "join requires a room id")
		return
	}
	cid := msg.ClientID
	if cid == "" {
		cid = uuid.NewString()[:8]
	}

	s.mu.Lock()
	rm, ok := s.rooms[rid]
	if !ok {
		rm = &room{rid: rid, host: cid, members: make(map[string]*client)}
		s.rooms[rid] = rm
	}
	if _, member := rm.members[cid]; !member && len(rm.members) >= maxRoomSize {
		s.mu.Unlock()
		s.sendError(c, "room-full", "room is full")
		return
	}

	// A rejoin on a fresh transport replaces the previous handle.
	c.cid = cid
	c.rid = rid
	rm.members[cid] = c
	state := rm.state()
	count := len(rm.members)

	peers := make([]*client, 0, 1)
	for pcid, pc := range rm.members {
		if pcid != cid {
			peers = append(peers, pc)
		}
	}
	s.mu.Unlock()

	slog.Info("[DevServer] client joined", "rid", rid, "cid", cid, "count", count)

	s.sendMsg(c, &typesv1.SignalingMessage{
		Type:    typesv1.TypeJoined,
		RoomID:  rid,
		Payload: state,
	})
	for _, pc := range peers {
		s.sendMsg(pc, &typesv1.SignalingMessage{
			Type:     typesv1.TypePeerJoined,
			RoomID:   rid,
			ClientID: cid,
			Payload:  map[string]any{"count": count},
		})
	}
	s.broadcastDelta(rid, count)
}

// leave removes a disconnected client from its room and notifies the peer.
func (s *Server) leave(c *client) {
	s.mu.Lock()
	rm, ok := s.rooms[c.rid]
	if !ok || rm.members[c.cid] != c {
		s.mu.Unlock()
		return
	}
	delete(rm.members, c.cid)
	count := len(rm.members)
	if count == 0 {
		delete(s.rooms, c.rid)
	}
	peers := make([]*client, 0, 1)
	for _, pc := range rm.members {
		peers = append(peers, pc)
	}
	rid, cid := c.rid, c.cid
	s.mu.Unlock()

	slog.Info("[DevServer] client left", "rid", rid, "cid", cid, "count", count)

	for _, pc := range peers {
		s.sendMsg(pc, &typesv1.SignalingMessage{
			Type:     typesv1.TypePeerLeft,
			RoomID:   rid,
			ClientID: cid,
			Payload:  map[string]any{"count": count},
		})
	}
	s.broadcastDelta(rid, count)
}

// relay forwards a message to the sender's peer (or the addressed member).
func (s *Server) relay(c *client, msg *typesv1.SignalingMessage) {
	s.mu.Lock()
	rm, ok := s.rooms[c.rid]
	if !ok {
		s.mu.Unlock()
		return
	}
	targets := make([]*client, 0, 1)
	for cid, pc := range rm.members {
		if pc == c {
			continue
		}
		if msg.To != "" && cid != msg.To {
			continue
		}
		targets = append(targets, pc)
	}
	s.mu.Unlock()

	msg.ClientID = c.cid
	msg.RoomID = c.rid
	for _, pc := range targets {
		s.sendMsg(pc, msg)
	}
}

// broadcastDelta pushes a room-delta update to every connected client.
func (s *Server) broadcastDelta(rid string, count int) {
	s.mu.Lock()
	all := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		all = append(all, c)
	}
	s.mu.Unlock()

	msg := &typesv1.SignalingMessage{
		Type:    typesv1.TypeRoomDelta,
		Payload: typesv1.RoomDelta{RID: rid, Count: count},
	}
	for _, c := range all {
		s.sendMsg(c, msg)
	}
}

// sendRoomSnapshot greets a fresh connection with the full room-status view.
func (s *Server) sendRoomSnapshot(c *client) {
	s.mu.Lock()
	counts := make(map[string]any, len(s.rooms))
	for rid, rm := range s.rooms {
		counts[rid] = len(rm.members)
	}
	s.mu.Unlock()

	s.sendMsg(c, &typesv1.SignalingMessage{
		Type:    typesv1.TypeRoomStatus,
		Payload: counts,
	})
}

func (s *Server) sendError(c *client, code, message string) {
	s.sendMsg(c, &typesv1.SignalingMessage{
		Type:    typesv1.TypeError,
		Payload: typesv1.ErrorInfo{Code: code, Message: message},
	})
}

func (s *Server) sendMsg(c *client, msg *typesv1.SignalingMessage) {
	data, err := codec.Encode(msg)
	if err != nil {
		slog.Error("[DevServer] encode failed", "type", msg.Type, "error", err)
		return
	}
	c.trySend(data)
}
