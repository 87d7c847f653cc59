// Package settings provides the injected key/value store for persistent
// client settings (normalized host, preferred transport, caller id). The
// Store interface is passed into constructors so tests can substitute the
// in-memory double; nothing here is a process-wide singleton.
package settings

import "sync"

// Well-known setting keys.
const (
	KeyHost               = "host"
	KeyClientID           = "client_id"
	KeyPreferredTransport = "preferred_transport"
	KeyDisplayName        = "display_name"
)

// Store is a key/value settings store.
type Store interface {
	// Get returns the value for key and whether it was set.
	Get(key string) (string, bool)

	// Set stores the value for key.
	Set(key, value string) error
}

// Memory is an in-memory Store, used as a test double and as the fallback
// when no settings file is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
	}
}

// Get implements Store.
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set implements Store.
func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
