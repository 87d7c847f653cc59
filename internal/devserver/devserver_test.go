package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/N0-C0M/Serenada-sub002/internal/signaling/api"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/call"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/hosts"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/roomstatus"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/session"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

// participant bundles a session and machine wired the way a real client
// wires them.
type participant struct {
	sess    *session.Session
	machine *call.Machine
	rooms   *roomstatus.Table
}

func newParticipant(t *testing.T, h hosts.Host, cid string, kind transport.Kind) *participant {
	t.Helper()

	sess := session.New(
		session.NewDialer(h, transport.DefaultConfig()),
		session.Policy{InitialDelay: 10 * time.Millisecond, MaxDelay: 40 * time.Millisecond, ConnectTimeout: 2 * time.Second},
		session.AlternatingStrategy{Start: kind},
	)
	rooms := roomstatus.NewTable()
	machine := call.New(call.Config{
		ClientID: cid,
		Send:     sess.Send,
		Rooms:    rooms,
	})

	go func() {
		for ev := range sess.Events() {
			machine.HandleSessionEvent(ev)
		}
	}()
	sess.Start()

	t.Cleanup(sess.Close)
	return &participant{sess: sess, machine: machine, rooms: rooms}
}

func (p *participant) waitFor(t *testing.T, desc string, cond func(call.UiState) bool) call.UiState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := p.machine.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; state %+v", desc, p.machine.Snapshot())
	return call.UiState{}
}

func startDevServer(t *testing.T) hosts.Host {
	t.Helper()
	ts := httptest.NewServer(New().Handler())
	t.Cleanup(ts.Close)

	h, err := hosts.Normalize(ts.URL)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", ts.URL, err)
	}
	return h
}

func TestTwoParticipantsReachInCall(t *testing.T) {
	h := startDevServer(t)

	// Alice hosts over the websocket variant; Bob joins over the
	// event-stream variant, so both transports exercise the full flow.
	alice := newParticipant(t, h, "alice", transport.KindWebSocket)
	alice.waitFor(t, "alice connected", func(s call.UiState) bool { return s.SignalingConnected })

	if err := alice.machine.StartCall(); err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	room, err := api.NewClient(h.APIBase()).AllocateRoom(context.Background())
	if err != nil {
		t.Fatalf("AllocateRoom: %v", err)
	}
	if err := alice.machine.RoomCreated(room.RID); err != nil {
		t.Fatalf("RoomCreated: %v", err)
	}

	snap := alice.waitFor(t, "alice waiting", func(s call.UiState) bool { return s.Phase == call.PhaseWaiting })
	if !snap.IsHost || snap.ParticipantCount != 1 {
		t.Fatalf("alice after join: %+v", snap)
	}

	bob := newParticipant(t, h, "bob", transport.KindEventStream)
	bob.waitFor(t, "bob connected", func(s call.UiState) bool { return s.SignalingConnected })
	if err := bob.machine.JoinRoom(room.RID); err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}

	snap = bob.waitFor(t, "bob in call", func(s call.UiState) bool { return s.Phase == call.PhaseInCall })
	if snap.IsHost || snap.ParticipantCount != 2 {
		t.Fatalf("bob in call: %+v", snap)
	}
	snap = alice.waitFor(t, "alice in call", func(s call.UiState) bool { return s.Phase == call.PhaseInCall })
	if snap.ParticipantCount != 2 {
		t.Fatalf("alice in call: %+v", snap)
	}

	// Both room-status tables converge on the served count.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, ok := alice.rooms.Count(room.RID); ok && c == 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if c, _ := alice.rooms.Count(room.RID); c != 2 {
		t.Errorf("alice room table count = %d, want 2", c)
	}

	// Bob hangs up; alice observes the relayed bye.
	if err := bob.machine.HangUp(); err != nil {
		t.Fatalf("HangUp: %v", err)
	}
	alice.waitFor(t, "alice ending", func(s call.UiState) bool { return s.Phase == call.PhaseEnding })
}

func TestThirdParticipantRejected(t *testing.T) {
	h := startDevServer(t)

	alice := newParticipant(t, h, "alice", transport.KindWebSocket)
	alice.waitFor(t, "alice connected", func(s call.UiState) bool { return s.SignalingConnected })
	_ = alice.machine.JoinRoom("room-x")
	alice.waitFor(t, "alice waiting", func(s call.UiState) bool { return s.Phase == call.PhaseWaiting })

	bob := newParticipant(t, h, "bob", transport.KindWebSocket)
	bob.waitFor(t, "bob connected", func(s call.UiState) bool { return s.SignalingConnected })
	_ = bob.machine.JoinRoom("room-x")
	bob.waitFor(t, "bob in call", func(s call.UiState) bool { return s.Phase == call.PhaseInCall })

	carol := newParticipant(t, h, "carol", transport.KindWebSocket)
	carol.waitFor(t, "carol connected", func(s call.UiState) bool { return s.SignalingConnected })
	_ = carol.machine.JoinRoom("room-x")

	snap := carol.waitFor(t, "carol rejected", func(s call.UiState) bool { return s.Phase == call.PhaseError })
	if snap.ErrorMessage != "room is full" {
		t.Errorf("carol error = %q, want \"room is full\"", snap.ErrorMessage)
	}
}

func TestRoomStatusProbe(t *testing.T) {
	h := startDevServer(t)

	alice := newParticipant(t, h, "alice", transport.KindWebSocket)
	alice.waitFor(t, "alice connected", func(s call.UiState) bool { return s.SignalingConnected })
	_ = alice.machine.JoinRoom("room-y")
	alice.waitFor(t, "alice waiting", func(s call.UiState) bool { return s.Phase == call.PhaseWaiting })

	client := api.NewClient(h.APIBase())
	status, err := client.RoomStatus(context.Background(), "room-y")
	if err != nil {
		t.Fatalf("RoomStatus: %v", err)
	}
	if status.Count != 1 {
		t.Errorf("Count = %d, want 1", status.Count)
	}

	if _, err := client.RoomStatus(context.Background(), "no-such-room"); err == nil {
		t.Error("RoomStatus for unknown room returned no error")
	}
}

func TestMuteRelayedToPeer(t *testing.T) {
	h := startDevServer(t)

	alice := newParticipant(t, h, "alice", transport.KindWebSocket)
	alice.waitFor(t, "alice connected", func(s call.UiState) bool { return s.SignalingConnected })
	_ = alice.machine.JoinRoom("room-z")
	alice.waitFor(t, "alice waiting", func(s call.UiState) bool { return s.Phase == call.PhaseWaiting })

	bob := newParticipant(t, h, "bob", transport.KindEventStream)
	bob.waitFor(t, "bob connected", func(s call.UiState) bool { return s.SignalingConnected })
	_ = bob.machine.JoinRoom("room-z")

	// Bob's join snapshot carries alice's media flags.
	snap := bob.waitFor(t, "bob in call", func(s call.UiState) bool { return s.Phase == call.PhaseInCall })
	if !snap.RemoteAudioOn {
		t.Fatalf("bob remote audio after join = false, want true")
	}

	// Alice mutes; the devserver relays it and bob's machine folds it into
	// the remote media flags.
	alice.machine.SetLocalAudio(false)
	bob.waitFor(t, "bob sees mute", func(s call.UiState) bool { return !s.RemoteAudioOn })
}
