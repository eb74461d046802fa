package heapguard

import (
	"unsafe"

	"github.com/hupe1980/heapguard/internal/mem"
)

// Allocator is the underlying memory-supply mechanism a tracker delegates to.
// The tracker implements no free lists, bins or coalescing of its own; every
// actual memory decision belongs to the Allocator.
//
// Implementations must be safe for concurrent use and must return an error
// from Realloc and Free for addresses they do not currently own, so that an
// untracked pass-through degrades to an error instead of corrupting state.
type Allocator interface {
	// Alloc returns a pointer to size bytes.
	Alloc(size int) (unsafe.Pointer, error)
	// Realloc resizes the region at ptr to newSize bytes, preserving the
	// prefix. On failure the original region remains valid and unchanged.
	Realloc(ptr unsafe.Pointer, newSize int) (unsafe.Pointer, error)
	// Free returns the region at ptr.
	Free(ptr unsafe.Pointer) error
	// Close releases every outstanding region.
	Close() error
}

// NewHeapAllocator returns the default Allocator: regions are Go byte slices
// pinned against garbage collection while their raw pointer is outstanding.
func NewHeapAllocator() Allocator {
	return mem.NewHeapAllocator()
}

// NewMmapAllocator returns an Allocator backed by anonymous memory mappings.
// Regions live entirely outside the Go heap, which is the closest analog to a
// raw C allocator: no GC involvement, page-granular isolation.
func NewMmapAllocator() Allocator {
	return mem.NewMmapAllocator()
}
