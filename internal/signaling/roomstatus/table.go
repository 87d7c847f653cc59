package roomstatus

import "sync"

// Table is the process-lifetime room-status view. It persists across call
// attempts and may be read by multiple consumers; writes go through the merge
// functions under a single-writer discipline.
type Table struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		counts: make(map[string]int),
	}
}

// ApplySnapshot merges a full-snapshot update.
func (t *Table) ApplySnapshot(counts map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = MergeSnapshot(t.counts, counts)
}

// ApplyDelta merges a single-room update.
func (t *Table) ApplyDelta(rid string, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = MergeDelta(t.counts, rid, count)
}

// Count returns the known participant count for a room.
func (t *Table) Count(rid string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count, ok := t.counts[rid]
	return count, ok
}

// Snapshot returns a copy of the current mapping.
func (t *Table) Snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.counts))
	for rid, count := range t.counts {
		out[rid] = count
	}
	return out
}
