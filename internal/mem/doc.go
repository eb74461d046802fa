// Package mem implements the underlying allocators a tracker delegates to.
//
// The tracker never supplies memory itself; it asks one of these allocators
// for the padded region and layers its bookkeeping on top. Two backends are
// provided:
//
//   - Heap: regions are Go byte slices pinned in a registry so the garbage
//     collector keeps them alive while the raw pointer is outstanding.
//   - Mmap: regions are anonymous mappings outside the Go heap, so pointers
//     behave exactly like C allocator results (no GC involvement at all).
//
// Both keep a per-pointer registry, which is what lets Realloc know the old
// size and lets Free reject addresses the allocator never issued.
package mem
