// Package config loads the probe client configuration.
package config

import (
	"flag"
	"os"
)

// Config holds the probe client configuration
type Config struct {
	// Host is the raw coordination server host; normalized via hosts.Normalize.
	Host string

	// Room is the room id to join; empty means create a new room.
	Room string

	// Transport is the preferred first transport ("websocket" or "sse").
	Transport string

	// Name is the display name / caller id.
	Name string

	// SettingsPath is the settings file location; empty disables persistence.
	SettingsPath string

	// LogLevel controls log verbosity.
	LogLevel string
}

// Load loads configuration from command line flags and environment variables
func Load() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Host, "host", "localhost:8080", "Coordination server host")
	flag.StringVar(&cfg.Room, "room", "", "Room id to join (empty creates a new room)")
	flag.StringVar(&cfg.Transport, "transport", "websocket", "Preferred transport (websocket, sse)")
	flag.StringVar(&cfg.Name, "name", "", "Display name (defaults to a generated id)")
	flag.StringVar(&cfg.SettingsPath, "settings", "", "Settings file path (empty disables persistence)")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	// Override with environment variables if set
	if host := os.Getenv("SERENADA_HOST"); host != "" {
		cfg.Host = host
	}
	if room := os.Getenv("SERENADA_ROOM"); room != "" {
		cfg.Room = room
	}
	if tr := os.Getenv("SERENADA_TRANSPORT"); tr != "" {
		cfg.Transport = tr
	}
	if name := os.Getenv("SERENADA_NAME"); name != "" {
		cfg.Name = name
	}
	if loglevel := os.Getenv("SERENADA_LOGLEVEL"); loglevel != "" {
		cfg.LogLevel = loglevel
	}

	return cfg
}
