package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	typesv1 "github.com/N0-C0M/Serenada-sub002/api/types/v1"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/codec"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

func TestBackoffDelaySeries(t *testing.T) {
	p := DefaultPolicy()

	want := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		5000 * time.Millisecond,
	}
	for i, w := range want {
		attempt := i + 1
		if got := p.Delay(attempt); got != w {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, w)
		}
	}

	// Capped for every attempt past 5.
	for _, attempt := range []int{6, 7, 12} {
		if got := p.Delay(attempt); got != 5000*time.Millisecond {
			t.Errorf("Delay(%d) = %v, want 5s", attempt, got)
		}
	}
}

func TestAlternatingStrategy(t *testing.T) {
	s := AlternatingStrategy{Start: transport.KindWebSocket}
	if s.First() != transport.KindWebSocket {
		t.Errorf("First() = %v, want websocket", s.First())
	}
	if s.Next(transport.KindWebSocket) != transport.KindEventStream {
		t.Error("Next(websocket) != sse")
	}
	if s.Next(transport.KindEventStream) != transport.KindWebSocket {
		t.Error("Next(sse) != websocket")
	}
}

// fakeTransport is a scriptable transport for session tests.
type fakeTransport struct {
	kind      transport.Kind
	connectOK bool

	mu       sync.Mutex
	ev       transport.Events
	detached bool
	open     bool
	sent     []*typesv1.SignalingMessage
	forced   []transport.CloseReason
}

func (f *fakeTransport) Kind() transport.Kind { return f.kind }

func (f *fakeTransport) Bind(ev transport.Events) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ev = ev
	f.detached = false
}

func (f *fakeTransport) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = true
}

func (f *fakeTransport) Connect() {
	if f.connectOK {
		f.mu.Lock()
		f.open = true
		f.mu.Unlock()
		f.emitOpen()
	} else {
		f.emitClose(transport.ReasonError, errors.New("connect refused"))
	}
}

func (f *fakeTransport) Close() {
	f.emitClose(transport.ReasonClose, nil)
}

func (f *fakeTransport) ForceClose(reason transport.CloseReason) {
	f.mu.Lock()
	f.forced = append(f.forced, reason)
	f.open = false
	f.mu.Unlock()
	f.emitClose(reason, nil)
}

func (f *fakeTransport) Send(m *typesv1.SignalingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return transport.ErrNotOpen
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) emitOpen() {
	f.mu.Lock()
	fn := f.ev.OnOpen
	detached := f.detached
	f.mu.Unlock()
	if !detached && fn != nil {
		fn()
	}
}

func (f *fakeTransport) emitClose(reason transport.CloseReason, cause error) {
	f.mu.Lock()
	fn := f.ev.OnClose
	detached := f.detached
	f.open = false
	f.mu.Unlock()
	if !detached && fn != nil {
		fn(reason, cause)
	}
}

func (f *fakeTransport) emitMessage(data []byte) {
	f.mu.Lock()
	fn := f.ev.OnMessage
	detached := f.detached
	f.mu.Unlock()
	if !detached && fn != nil {
		fn(data)
	}
}

// fakeDialer hands out fakeTransports according to a script of connect
// outcomes and records every instance it created.
type fakeDialer struct {
	mu      sync.Mutex
	script  []bool // connect outcomes, last entry repeats
	created []*fakeTransport
}

func (d *fakeDialer) dial(kind transport.Kind) transport.Transport {
	d.mu.Lock()
	defer d.mu.Unlock()

	ok := true
	if len(d.script) > 0 {
		ok = d.script[0]
		if len(d.script) > 1 {
			d.script = d.script[1:]
		}
	}
	f := &fakeTransport{kind: kind, connectOK: ok}
	d.created = append(d.created, f)
	return f
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.created)
}

func (d *fakeDialer) last() *fakeTransport {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.created) == 0 {
		return nil
	}
	return d.created[len(d.created)-1]
}

func fastPolicy() Policy {
	return Policy{
		InitialDelay:   time.Millisecond,
		MaxDelay:       4 * time.Millisecond,
		ConnectTimeout: time.Second,
	}
}

func waitEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed while waiting for %v", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v event", want)
		}
	}
}

func TestSessionFallbackToEventStream(t *testing.T) {
	d := &fakeDialer{script: []bool{false, true}}
	s := New(d.dial, fastPolicy(), AlternatingStrategy{Start: transport.KindWebSocket})
	defer s.Close()
	s.Start()

	rec := waitEvent(t, s.Events(), EventReconnecting)
	if rec.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", rec.Attempt)
	}
	if rec.Transport != transport.KindEventStream {
		t.Errorf("next transport = %v, want sse", rec.Transport)
	}
	if !s.IsReconnecting() {
		t.Error("IsReconnecting = false between close and reopen")
	}

	open := waitEvent(t, s.Events(), EventOpen)
	if open.Transport != transport.KindEventStream {
		t.Errorf("open transport = %v, want sse", open.Transport)
	}
	if s.IsReconnecting() {
		t.Error("IsReconnecting = true after open")
	}
	if s.TransportKind() != transport.KindEventStream {
		t.Errorf("TransportKind = %v, want sse", s.TransportKind())
	}
}

func TestSessionAttemptCounterResetsOnOpen(t *testing.T) {
	// Fail twice, open, then the test drops the live transport: the next
	// reconnect must count as attempt 1 again.
	d := &fakeDialer{script: []bool{false, false, true, true}}
	s := New(d.dial, fastPolicy(), AlternatingStrategy{Start: transport.KindWebSocket})
	defer s.Close()
	s.Start()

	if ev := waitEvent(t, s.Events(), EventReconnecting); ev.Attempt != 1 {
		t.Errorf("first attempt = %d, want 1", ev.Attempt)
	}
	if ev := waitEvent(t, s.Events(), EventReconnecting); ev.Attempt != 2 {
		t.Errorf("second attempt = %d, want 2", ev.Attempt)
	}
	waitEvent(t, s.Events(), EventOpen)

	d.last().emitClose(transport.ReasonError, errors.New("dropped"))

	if ev := waitEvent(t, s.Events(), EventReconnecting); ev.Attempt != 1 {
		t.Errorf("attempt after reopen = %d, want 1", ev.Attempt)
	}
}

func TestSessionCloseCancelsPendingBackoff(t *testing.T) {
	// A long delay keeps the reconnect pending while we close.
	d := &fakeDialer{script: []bool{false}}
	p := Policy{InitialDelay: 10 * time.Second, MaxDelay: 10 * time.Second, ConnectTimeout: time.Second}
	s := New(d.dial, p, AlternatingStrategy{Start: transport.KindWebSocket})
	s.Start()

	waitEvent(t, s.Events(), EventReconnecting)
	dialsBefore := d.count()

	s.Close()
	waitEvent(t, s.Events(), EventClosed)

	// Channel closes after EventClosed and no further dial happens.
	if _, ok := <-s.Events(); ok {
		t.Error("events channel not closed after EventClosed")
	}
	time.Sleep(50 * time.Millisecond)
	if got := d.count(); got != dialsBefore {
		t.Errorf("dials after close = %d, want %d", got, dialsBefore)
	}
	if s.IsReconnecting() {
		t.Error("IsReconnecting = true after owner close")
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	d := &fakeDialer{script: []bool{true}}
	s := New(d.dial, fastPolicy(), nil)
	s.Start()
	waitEvent(t, s.Events(), EventOpen)

	s.Close()
	s.Close()
	s.Close()
	waitEvent(t, s.Events(), EventClosed)
}

func TestSessionMaxAttemptsDown(t *testing.T) {
	d := &fakeDialer{script: []bool{false}}
	p := fastPolicy()
	p.MaxAttempts = 2
	s := New(d.dial, p, AlternatingStrategy{Start: transport.KindWebSocket})
	defer s.Close()
	s.Start()

	waitEvent(t, s.Events(), EventReconnecting)
	waitEvent(t, s.Events(), EventReconnecting)
	waitEvent(t, s.Events(), EventDown)

	dialsAtDown := d.count()
	time.Sleep(50 * time.Millisecond)
	if got := d.count(); got != dialsAtDown {
		t.Errorf("dials after down = %d, want %d", got, dialsAtDown)
	}
}

func TestSessionSendWhileNotOpen(t *testing.T) {
	d := &fakeDialer{script: []bool{false}}
	p := Policy{InitialDelay: 10 * time.Second, MaxDelay: 10 * time.Second, ConnectTimeout: time.Second}
	s := New(d.dial, p, nil)
	defer s.Close()
	s.Start()

	waitEvent(t, s.Events(), EventReconnecting)
	err := s.Send(&typesv1.SignalingMessage{Type: typesv1.TypeJoin})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send error = %v, want ErrNotConnected", err)
	}
}

func TestSessionSendGoesToOpenTransport(t *testing.T) {
	d := &fakeDialer{script: []bool{true}}
	s := New(d.dial, fastPolicy(), nil)
	defer s.Close()
	s.Start()
	waitEvent(t, s.Events(), EventOpen)

	if err := s.Send(&typesv1.SignalingMessage{Type: typesv1.TypeJoin, RoomID: "room-1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	tr := d.last()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.sent) != 1 || tr.sent[0].RoomID != "room-1" {
		t.Errorf("sent = %+v, want one join for room-1", tr.sent)
	}
}

func TestSessionDeliversMessagesInOrderAndDropsMalformed(t *testing.T) {
	d := &fakeDialer{script: []bool{true}}
	s := New(d.dial, fastPolicy(), nil)
	defer s.Close()
	s.Start()
	waitEvent(t, s.Events(), EventOpen)

	tr := d.last()
	first, _ := codec.Encode(&typesv1.SignalingMessage{Type: typesv1.TypePeerJoined})
	second, _ := codec.Encode(&typesv1.SignalingMessage{Type: typesv1.TypeBye})
	tr.emitMessage(first)
	tr.emitMessage([]byte(`{"not json`))
	tr.emitMessage(second)

	ev1 := waitEvent(t, s.Events(), EventMessage)
	ev2 := waitEvent(t, s.Events(), EventMessage)
	if ev1.Message.Type != typesv1.TypePeerJoined || ev2.Message.Type != typesv1.TypeBye {
		t.Errorf("message order = %q, %q; want peer-joined, bye", ev1.Message.Type, ev2.Message.Type)
	}
}
