package ledger

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// freedOptimizeInterval is how many inserts pass between RunOptimize calls.
// Released addresses cluster heavily (allocators reuse nearby regions), so
// run-length containers compress the set well.
const freedOptimizeInterval = 1024

// FreedSet records user addresses that have been released and not yet reused.
// It is backed by a 64-bit roaring bitmap, which keeps the set compact even
// after millions of releases.
//
// Growth is bounded by an optional cardinality cap: once the set exceeds the
// cap it is cleared wholesale. That forgets double-free history, which is the
// documented trade-off for long-running processes; a cap of zero disables the
// bound.
type FreedSet struct {
	bm      *roaring64.Bitmap
	limit   uint64
	inserts uint64
}

// NewFreedSet creates a freed-pointer ledger with the given cardinality cap.
func NewFreedSet(limit uint64) *FreedSet {
	return &FreedSet{
		bm:    roaring64.New(),
		limit: limit,
	}
}

// Contains reports whether addr has been released and not reissued since.
func (s *FreedSet) Contains(addr uintptr) bool {
	return s.bm.Contains(uint64(addr))
}

// Insert records addr as released.
func (s *FreedSet) Insert(addr uintptr) {
	if s.limit > 0 && s.bm.GetCardinality() >= s.limit {
		s.bm = roaring64.New()
	}
	s.bm.Add(uint64(addr))

	s.inserts++
	if s.inserts%freedOptimizeInterval == 0 {
		s.bm.RunOptimize()
	}
}

// Remove deletes addr from the set. Called when the underlying allocator
// legitimately reissues a previously released address; without this removal
// the next release of that address would be misreported as a double free.
func (s *FreedSet) Remove(addr uintptr) {
	s.bm.Remove(uint64(addr))
}

// Len returns the number of recorded addresses.
func (s *FreedSet) Len() uint64 {
	return s.bm.GetCardinality()
}

// Clear drops every recorded address.
func (s *FreedSet) Clear() {
	s.bm = roaring64.New()
}
