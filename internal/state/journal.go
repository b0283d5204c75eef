// Package state provides the undo journal that makes engine operations all-or-nothing.
//
// Every component that mutates shared state records an undo entry before the
// mutation. A caller takes a snapshot at the start of an operation and either
// reverts to it on failure or commits on success. Snapshots nest; entries are
// discarded only when the outermost snapshot commits.
package state

// Journal is an ordered list of undo entries. It is not safe for concurrent use.
type Journal struct {
	entries []func()
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append records an undo entry for a mutation that has just been applied.
// A nil journal accepts and drops the entry.
func (j *Journal) Append(undo func()) {
	if j == nil || undo == nil {
		return
	}
	j.entries = append(j.entries, undo)
}

// Snapshot returns an identifier for the current journal position.
func (j *Journal) Snapshot() int {
	if j == nil {
		return 0
	}
	return len(j.entries)
}

// RevertToSnapshot undoes every mutation recorded after the snapshot, newest first.
func (j *Journal) RevertToSnapshot(id int) {
	if j == nil || id < 0 || id > len(j.entries) {
		return
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i]()
		j.entries[i] = nil
	}
	j.entries = j.entries[:id]
}

// Commit accepts the mutations recorded after the snapshot. Only the outermost
// snapshot (0) drops undo entries; committing an inner snapshot keeps them so
// an enclosing snapshot can still revert the whole operation.
func (j *Journal) Commit(id int) {
	if j == nil || id != 0 {
		return
	}
	for i := range j.entries {
		j.entries[i] = nil
	}
	j.entries = j.entries[:0]
}

// Len reports the number of pending undo entries.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.entries)
}
