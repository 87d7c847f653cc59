// Package hosts normalizes server host strings and derives endpoint URLs.
//
// The normalized bare host ("host" or "host:port", default port 443 omitted)
// is the canonical form persisted and compared across saved rooms and
// reconnection targets. Scheme defaults to secure; an explicit http:// prefix
// marks the host insecure so plaintext ws/http endpoints can be derived.
package hosts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrEmptyHost indicates the input was empty after trimming.
	ErrEmptyHost = errors.New("empty host")

	// ErrInvalidHost indicates the input could not be parsed as host[:port].
	ErrInvalidHost = errors.New("invalid host")
)

// Host is a normalized signaling server host.
type Host struct {
	// Name is the canonical bare host, "host" or "host:port".
	Name string

	// Insecure is true when the raw input carried an explicit http:// prefix.
	Insecure bool
}

// Normalize parses a raw host input into its canonical form.
func Normalize(raw string) (Host, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Host{}, ErrEmptyHost
	}

	insecure := false
	switch {
	case strings.HasPrefix(s, "http://"):
		insecure = true
		s = strings.TrimPrefix(s, "http://")
	case strings.HasPrefix(s, "https://"):
		s = strings.TrimPrefix(s, "https://")
	}

	// Drop any path component
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}
	if s == "" {
		return Host{}, ErrEmptyHost
	}

	name := s
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		host, portStr := s[:idx], s[idx+1:]
		if host == "" {
			return Host{}, fmt.Errorf("%w: %q", ErrInvalidHost, raw)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return Host{}, fmt.Errorf("%w: bad port in %q", ErrInvalidHost, raw)
		}
		if port == 443 {
			name = host
		} else {
			name = host + ":" + portStr
		}
	}

	return Host{Name: name, Insecure: insecure}, nil
}

// String returns the canonical bare host.
func (h Host) String() string {
	return h.Name
}

// WebSocketURL returns the persistent-socket endpoint.
func (h Host) WebSocketURL() string {
	if h.Insecure {
		return "ws://" + h.Name + "/ws"
	}
	return "wss://" + h.Name + "/ws"
}

// EventStreamURL returns the polling/event-stream endpoint. The transport
// appends its session identifier as a query parameter.
func (h Host) EventStreamURL() string {
	return h.APIBase() + "/sse"
}

// APIBase returns the base URL for request/response API calls.
func (h Host) APIBase() string {
	if h.Insecure {
		return "http://" + h.Name
	}
	return "https://" + h.Name
}
