package roomstatus

import (
	"reflect"
	"testing"
)

func TestMergeSnapshotUnionOverwrite(t *testing.T) {
	prev := map[string]int{"A": 1}
	got := MergeSnapshot(prev, map[string]int{"A": 2, "B": 3})
	want := map[string]int{"A": 2, "B": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeSnapshot = %v, want %v", got, want)
	}

	// Keys absent from the payload are left untouched.
	prev = map[string]int{"A": 1, "C": 7}
	got = MergeSnapshot(prev, map[string]int{"A": 2})
	want = map[string]int{"A": 2, "C": 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeSnapshot = %v, want %v", got, want)
	}
}

func TestMergeDelta(t *testing.T) {
	got := MergeDelta(map[string]int{"A": 1}, "A", 5)
	want := map[string]int{"A": 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeDelta = %v, want %v", got, want)
	}

	got = MergeDelta(map[string]int{"A": 1}, "B", 2)
	want = map[string]int{"A": 1, "B": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeDelta = %v, want %v", got, want)
	}
}

func TestMergeIdempotence(t *testing.T) {
	prev := map[string]int{"A": 1, "B": 2}

	snap := map[string]int{"A": 4, "C": 9}
	once := MergeSnapshot(prev, snap)
	twice := MergeSnapshot(once, snap)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("snapshot merge not idempotent: %v vs %v", once, twice)
	}

	onceDelta := MergeDelta(prev, "B", 5)
	twiceDelta := MergeDelta(onceDelta, "B", 5)
	if !reflect.DeepEqual(onceDelta, twiceDelta) {
		t.Errorf("delta merge not idempotent: %v vs %v", onceDelta, twiceDelta)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	prev := map[string]int{"A": 1}
	_ = MergeSnapshot(prev, map[string]int{"A": 2})
	_ = MergeDelta(prev, "A", 3)
	if prev["A"] != 1 {
		t.Errorf("prev mutated: %v", prev)
	}
}

func TestTable(t *testing.T) {
	table := NewTable()
	table.ApplySnapshot(map[string]int{"A": 1, "B": 2})
	table.ApplyDelta("A", 2)

	if count, ok := table.Count("A"); !ok || count != 2 {
		t.Errorf("Count(A) = (%d, %v), want (2, true)", count, ok)
	}
	if _, ok := table.Count("missing"); ok {
		t.Error("Count(missing) reported ok")
	}

	snap := table.Snapshot()
	snap["B"] = 99
	if count, _ := table.Count("B"); count != 2 {
		t.Error("Snapshot copy is not independent of the table")
	}
}
