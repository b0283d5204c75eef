package state

import (
	"reflect"
	"testing"
)

func TestJournalRevertOrder(t *testing.T) {
	j := NewJournal()
	var log []int
	value := 0

	snap := j.Snapshot()
	for i := 1; i <= 3; i++ {
		prev := value
		value = i
		n := i
		j.Append(func() {
			value = prev
			log = append(log, n)
		})
	}

	j.RevertToSnapshot(snap)
	if value != 0 {
		t.Fatalf("value not restored: %d", value)
	}
	if !reflect.DeepEqual(log, []int{3, 2, 1}) {
		t.Fatalf("undo order mismatch: %v", log)
	}
	if j.Len() != 0 {
		t.Fatalf("journal not empty after revert: %d", j.Len())
	}
}

func TestJournalPartialRevertAndCommit(t *testing.T) {
	j := NewJournal()
	value := 0

	set := func(v int) {
		prev := value
		value = v
		j.Append(func() { value = prev })
	}

	outer := j.Snapshot()
	set(1)
	inner := j.Snapshot()
	set(2)
	j.RevertToSnapshot(inner)
	if value != 1 {
		t.Fatalf("inner revert mismatch: %d", value)
	}

	j.Commit(outer)
	if j.Len() != 0 {
		t.Fatalf("commit should drop entries")
	}
	j.RevertToSnapshot(outer)
	if value != 1 {
		t.Fatalf("committed value changed: %d", value)
	}
}

func TestJournalInnerCommitKeepsEntriesForOuterRevert(t *testing.T) {
	j := NewJournal()
	value := 0
	set := func(v int) {
		prev := value
		value = v
		j.Append(func() { value = prev })
	}

	outer := j.Snapshot()
	set(1)
	inner := j.Snapshot()
	set(2)
	j.Commit(inner)
	if j.Len() != 2 {
		t.Fatalf("inner commit dropped entries: %d left", j.Len())
	}
	set(3)

	j.RevertToSnapshot(outer)
	if value != 0 {
		t.Fatalf("outer revert left value %d", value)
	}
	if j.Len() != 0 {
		t.Fatalf("journal not empty after outer revert: %d", j.Len())
	}
}

func TestNilJournal(t *testing.T) {
	var j *Journal
	j.Append(func() {})
	j.RevertToSnapshot(j.Snapshot())
	j.Commit(0)
	if j.Len() != 0 {
		t.Fatalf("nil journal should be empty")
	}
}
