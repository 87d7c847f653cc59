// Package devserver is a loopback double of the coordination server. It
// implements the wire contract at the boundary (/ws, /sse, REST) so both
// client transports and the full join flow can be exercised in development
// and integration tests. It is not a production server.
package devserver

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	json "github.com/goccy/go-json"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
)

// maxRoomSize caps participants per room; calls are one-to-one.
const maxRoomSize = 2

// Server is the in-memory coordination server double.
type Server struct {
	mu      sync.Mutex
	rooms   map[string]*room
	clients map[*client]struct{} // every connected client, any transport
	streams map[string]*client   // sid -> event-stream client

	router   chi.Router
	upgrader websocket.Upgrader
	ice      []webrtc.ICEServer
}

// New creates a devserver.
func New() *Server {
	s := &Server{
		rooms:   make(map[string]*room),
		clients: make(map[*client]struct{}),
		streams: make(map[string]*client),
		ice: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}

	r := chi.NewRouter()
	r.Get("/ws", s.handleWebSocket)
	r.Get("/sse", s.handleStream)
	r.Post("/sse", s.handleStreamSend)
	r.Post("/api/rooms", s.handleAllocateRoom)
	r.Get("/api/turn", s.handleTurn)
	r.Get("/api/rooms/{rid}/status", s.handleRoomStatus)
	s.router = r

	return s
}

// Handler returns the server's HTTP handler, usable with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleAllocateRoom(w http.ResponseWriter, r *http.Request) {
	rid := uuid.NewString()[:8]
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(typesv1.AllocateRoomResponse{RID: rid})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(typesv1.TurnResponse{ICEServers: s.ice})
}

func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	rid := chi.URLParam(r, "rid")

	s.mu.Lock()
	rm, ok := s.rooms[rid]
	count := 0
	if ok {
		count = len(rm.members)
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(typesv1.RoomStatusResponse{RID: rid, Count: count})
}
