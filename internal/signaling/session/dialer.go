package session

import (
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/hosts"
	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

// Dialer constructs a fresh transport instance of the requested variant.
// Injected so tests can substitute scripted transports.
type Dialer func(kind transport.Kind) transport.Transport

// NewDialer returns a Dialer targeting the given host's endpoints.
func NewDialer(h hosts.Host, cfg transport.Config) Dialer {
	return func(kind transport.Kind) transport.Transport {
		switch kind {
		case transport.KindEventStream:
			return transport.NewEventStream(h.EventStreamURL(), cfg)
		default:
			return transport.NewWebSocket(h.WebSocketURL(), cfg)
		}
	}
}
