package settings

import (
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemory()

	if _, ok := s.Get(KeyHost); ok {
		t.Error("empty store reported a value")
	}
	if err := s.Set(KeyHost, "call.example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := s.Get(KeyHost); !ok || v != "call.example.com" {
		t.Errorf("Get = (%q, %v), want (call.example.com, true)", v, ok)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, ok := s.Get(KeyClientID); ok {
		t.Error("fresh store reported a value")
	}
	if err := s.Set(KeyClientID, "alice"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(KeyPreferredTransport, "sse"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Values survive a reopen.
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok := reopened.Get(KeyClientID); !ok || v != "alice" {
		t.Errorf("reopened Get(client_id) = (%q, %v), want (alice, true)", v, ok)
	}
	if v, _ := reopened.Get(KeyPreferredTransport); v != "sse" {
		t.Errorf("reopened Get(preferred_transport) = %q, want sse", v)
	}
}
