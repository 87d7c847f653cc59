package session

import "github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"

// Strategy decides the transport fallback order. The exact order is policy,
// not fixed by the session itself.
type Strategy interface {
	// First returns the variant for the initial connect attempt.
	First() transport.Kind

	// Next returns the variant to try after an attempt on prev failed.
	Next(prev transport.Kind) transport.Kind
}

// AlternatingStrategy starts with Start and alternates variants on every
// failed attempt, so a failed fallback retries the original on the next
// cycle.
type AlternatingStrategy struct {
	Start transport.Kind
}

// First returns the starting variant.
func (s AlternatingStrategy) First() transport.Kind {
	return s.Start
}

// Next returns the other variant.
func (s AlternatingStrategy) Next(prev transport.Kind) transport.Kind {
	if prev == transport.KindWebSocket {
		return transport.KindEventStream
	}
	return transport.KindWebSocket
}

// PinnedStrategy always uses one variant; useful when the owner knows the
// environment only supports one of them.
type PinnedStrategy struct {
	Kind transport.Kind
}

// First returns the pinned variant.
func (s PinnedStrategy) First() transport.Kind {
	return s.Kind
}

// Next returns the pinned variant.
func (s PinnedStrategy) Next(transport.Kind) transport.Kind {
	return s.Kind
}
