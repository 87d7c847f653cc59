// Package roomstatus tracks server-reported participant counts per room.
// The mapping is mutated only through the pure merge functions.
package roomstatus

// MergeSnapshot folds a full-snapshot payload into a previous mapping. Every
// key present in counts overwrites the previous value; keys absent from
// counts are left untouched (union-overwrite, not replace). Inputs are never
// mutated. Idempotent.
func MergeSnapshot(prev map[string]int, counts map[string]int) map[string]int {
	merged := make(map[string]int, len(prev)+len(counts))
	for rid, count := range prev {
		merged[rid] = count
	}
	for rid, count := range counts {
		merged[rid] = count
	}
	return merged
}

// MergeDelta folds a single-room update into a previous mapping. Inputs are
// never mutated. Idempotent.
func MergeDelta(prev map[string]int, rid string, count int) map[string]int {
	merged := make(map[string]int, len(prev)+1)
	for r, c := range prev {
		merged[r] = c
	}
	merged[rid] = count
	return merged
}
