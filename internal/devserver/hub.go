package devserver

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer     = 64
	writeDeadline  = 5 * time.Second
	heartbeatEvery = 25 * time.Second
	maxSendBody    = 64 * 1024
)

// client is one connected participant, regardless of transport.
type client struct {
	cid string // set on join
	rid string // joined room, "" before join
	sid string // event-stream clients only

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(sid string) *client {
	return &client{
		sid:  sid,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// trySend queues a frame, dropping it when the client is slow.
func (c *client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("[DevServer] dropping frame for slow client", "cid", c.cid)
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DevServer] websocket upgrade failed", "error", err)
		return
	}

	c := newClient("")
	s.register(c)
	defer func() {
		s.unregister(c)
		c.close()
		conn.Close()
	}()

	go wsWritePump(conn, c)

	s.sendRoomSnapshot(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(c, data)
	}
}

func wsWritePump(conn *websocket.Conn, c *client) {
	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")
	if sid == "" {
		http.Error(w, "missing sid", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := newClient(sid)
	s.registerStream(c)
	defer func() {
		s.unregisterStream(c)
		c.close()
	}()

	// Initial comment so proxies flush headers
	_, _ = w.Write([]byte(": ok\n\n"))
	flusher.Flush()

	s.sendRoomSnapshot(c)

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case data := <-c.send:
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(data)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}

// handleStreamSend is the POST half of the event-stream transport. A POST
// for an unknown or expired sid answers 410 so the client tears the
// transport down with reason "gone".
func (s *Server) handleStreamSend(w http.ResponseWriter, r *http.Request) {
	sid := r.URL.Query().Get("sid")

	s.mu.Lock()
	c, ok := s.streams[sid]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "session gone", http.StatusGone)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxSendBody))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	s.dispatch(c, data)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.leave(c)
}

func (s *Server) registerStream(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	s.streams[c.sid] = c
}

func (s *Server) unregisterStream(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	delete(s.streams, c.sid)
	s.mu.Unlock()
	s.leave(c)
}
