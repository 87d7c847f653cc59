package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/N0-C0M/Serenada-sub002/internal/banner"
	"github.com/N0-C0M/Serenada-sub002/internal/logger"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/api"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/call"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/config"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/hosts"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/media"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/roomstatus"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/session"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/settings"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.InitLogger(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	host, err := hosts.Normalize(cfg.Host)
	if err != nil {
		slog.Error("Invalid host", "host", cfg.Host, "error", err)
		os.Exit(1)
	}

	kind, ok := transport.ParseKind(cfg.Transport)
	if !ok {
		slog.Error("Unknown transport", "transport", cfg.Transport)
		os.Exit(1)
	}

	clientID := resolveClientID(cfg)

	roomLabel := cfg.Room
	if roomLabel == "" {
		roomLabel = "(new)"
	}

	// Print startup banner
	banner.Print("SIGNALING PROBE", []banner.ConfigLine{
		{Label: "Host", Value: host.String()},
		{Label: "Room", Value: roomLabel},
		{Label: "Transport", Value: kind.String()},
		{Label: "Client ID", Value: clientID},
		{Label: "Log Level", Value: logger.GetLevel()},
	})

	run(cfg, host, kind, clientID)
}

// resolveClientID picks the caller id: flag, then the settings file, then a
// fresh generated id (persisted when a settings file is configured).
func resolveClientID(cfg *config.Config) string {
	if cfg.Name != "" {
		return cfg.Name
	}

	var store settings.Store = settings.NewMemory()
	if cfg.SettingsPath != "" {
		fs, err := settings.NewFileStore(cfg.SettingsPath)
		if err != nil {
			slog.Warn("Settings file unavailable, not persisting", "path", cfg.SettingsPath, "error", err)
		} else {
			store = fs
		}
	}

	if id, ok := store.Get(settings.KeyClientID); ok && id != "" {
		return id
	}
	id := uuid.NewString()[:8]
	if err := store.Set(settings.KeyClientID, id); err != nil {
		slog.Warn("Could not persist client id", "error", err)
	}
	return id
}

func run(cfg *config.Config, host hosts.Host, kind transport.Kind, clientID string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(
		session.NewDialer(host, transport.DefaultConfig()),
		session.DefaultPolicy(),
		session.AlternatingStrategy{Start: kind},
	)

	engine := media.NewNullEngine()
	rooms := roomstatus.NewTable()
	machine := call.New(call.Config{
		ClientID: clientID,
		Send:     sess.Send,
		Media:    engine,
		Rooms:    rooms,
	})

	var lastPhase call.Phase
	machine.OnChange(func(s call.UiState) {
		if s.Phase != lastPhase {
			slog.Info("Call phase changed", "from", lastPhase, "to", s.Phase,
				"room", s.RoomID, "participants", s.ParticipantCount)
			lastPhase = s.Phase
		}
	})

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for ev := range sess.Events() {
			machine.HandleSessionEvent(ev)
		}
	}()
	go func() {
		for ev := range engine.StateEvents() {
			machine.HandleMediaEvent(ev)
		}
	}()

	sess.Start()

	if cfg.Room == "" {
		if err := machine.StartCall(); err != nil {
			slog.Error("Could not start call", "error", err)
			os.Exit(1)
		}
		room, err := api.NewClient(host.APIBase()).AllocateRoom(ctx)
		if err != nil {
			slog.Error("Room allocation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Room allocated", "rid", room.RID)
		if err := machine.RoomCreated(room.RID); err != nil {
			slog.Error("Could not enter room", "error", err)
			os.Exit(1)
		}
	} else {
		if err := machine.JoinRoom(cfg.Room); err != nil {
			slog.Error("Could not join room", "error", err)
			os.Exit(1)
		}
	}

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("Shutting down probe...")
	if machine.Snapshot().Phase.Active() {
		_ = machine.HangUp()
		_ = machine.TeardownComplete()
	}
	sess.Close()

	select {
	case <-pumpDone:
	case <-time.After(2 * time.Second):
	}

	snap := machine.Snapshot()
	slog.Info("Probe finished",
		"messages_in", snap.Stats.MessagesIn,
		"messages_out", snap.Stats.MessagesOut,
		"reconnects", snap.Stats.Reconnects,
		"transport_switches", snap.Stats.TransportSwitches,
	)
}
