// Package ledger holds the bookkeeping state of a tracker: the table of live
// allocations keyed by user address, and the set of previously released
// addresses used for double-free detection.
//
// Neither structure performs any locking; the owning tracker serializes all
// access under its own lock so that ledger and statistics updates stay
// observable as one atomic unit.
package ledger

import (
	"sort"
	"unsafe"
)

// Record describes one live allocation. The ledger exclusively owns every
// Record and the underlying region it points at.
type Record struct {
	// Real is the full underlying allocation including both sentinel regions.
	Real unsafe.Pointer
	// User is the address handed to the client, Real + guard width.
	User unsafe.Pointer
	// Requested is the byte count the client asked for.
	Requested int
	// Total is Requested plus both sentinel widths.
	Total int
	// Site is the caller-supplied source annotation. Opaque, never parsed.
	Site string
	// Seq is the insertion sequence number. Reports iterate in Seq order so
	// their output is deterministic even though the backing store is a map.
	Seq uint64
}

// Table is the allocation ledger: a hash map keyed by user address with
// explicit insertion ordering. Lookups are O(1) rather than the linear list
// scan of a naive implementation.
type Table struct {
	records map[uintptr]*Record
	nextSeq uint64
}

// NewTable creates an empty allocation ledger.
func NewTable() *Table {
	return &Table{
		records: make(map[uintptr]*Record),
	}
}

// Insert adds a record for a fresh allocation and assigns its sequence number.
// The user address must not already be present.
func (t *Table) Insert(rec *Record) {
	t.nextSeq++
	rec.Seq = t.nextSeq
	t.records[uintptr(rec.User)] = rec
}

// Lookup returns the record for the given user address.
func (t *Table) Lookup(addr uintptr) (*Record, bool) {
	rec, ok := t.records[addr]
	return rec, ok
}

// Remove deletes the record for the given user address.
func (t *Table) Remove(addr uintptr) {
	delete(t.records, addr)
}

// Rekey moves an existing record from its old user address to the address
// currently stored in rec.User. The record keeps its sequence number, so a
// resized allocation keeps its position in reports.
func (t *Table) Rekey(oldAddr uintptr, rec *Record) {
	delete(t.records, oldAddr)
	t.records[uintptr(rec.User)] = rec
}

// Len returns the number of live allocations.
func (t *Table) Len() int {
	return len(t.records)
}

// Ordered returns all live records sorted by insertion sequence.
func (t *Table) Ordered() []*Record {
	out := make([]*Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Clear drops every record. Sequence numbering continues where it left off.
func (t *Table) Clear() {
	t.records = make(map[uintptr]*Record)
}
