package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/N0-C0M/Serenada-sub002/internal/signaling/transport"
)

// Policy holds the reconnection policy parameters.
type Policy struct {
	// InitialDelay is the delay before reconnect attempt 1.
	InitialDelay time.Duration

	// MaxDelay caps the delay for late attempts.
	MaxDelay time.Duration

	// MaxAttempts bounds consecutive failed attempts before the session
	// reports itself down. 0 means unbounded; the terminal cap is a policy
	// boundary for the owner, not something this core insists on.
	MaxAttempts int

	// ConnectTimeout is handed to each transport instance.
	ConnectTimeout time.Duration
}

// DefaultPolicy returns the standard reconnect policy: 500ms doubling up to a
// 5s cap, unbounded attempts.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		ConnectTimeout: transport.DefaultConnectTimeout,
	}
}

// newBackOff builds the policy's delay source. With randomization disabled
// the series is exactly InitialDelay*2^(n-1) capped at MaxDelay.
func (p Policy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = p.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns the reconnect delay for the given 1-indexed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	b := p.newBackOff()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

func (p Policy) transportConfig() transport.Config {
	return transport.Config{
		ConnectTimeout: p.ConnectTimeout,
	}
}
