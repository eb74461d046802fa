package mem

import (
	"sync"
	"unsafe"

	"github.com/hupe1980/heapguard/internal/mmap"
)

// MmapAllocator supplies memory through anonymous mappings, one per region.
// The returned pointers live outside the Go heap entirely, which is the
// closest Go analog to a raw C allocator and keeps tracked regions out of
// garbage-collector scans.
//
// Per-allocation mappings are page-granular, so this backend trades space for
// isolation: an overrun past a region's last page faults loudly instead of
// silently corrupting a neighbor. Prefer HeapAllocator for small-allocation
// heavy workloads.
type MmapAllocator struct {
	mu      sync.Mutex
	regions map[uintptr]*mmap.Mapping
	closed  bool
}

// NewMmapAllocator creates an allocator backed by anonymous mappings.
func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{
		regions: make(map[uintptr]*mmap.Mapping),
	}
}

// Alloc implements Allocator.
func (a *MmapAllocator) Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, err
	}

	ptr := unsafe.Pointer(&m.Bytes()[0])
	a.regions[uintptr(ptr)] = m
	return ptr, nil
}

// Realloc implements Allocator. Anonymous mappings cannot grow in place, so
// this maps a new region, copies the surviving prefix, and unmaps the old one.
func (a *MmapAllocator) Realloc(ptr unsafe.Pointer, newSize int) (unsafe.Pointer, error) {
	if ptr == nil {
		return a.Alloc(newSize)
	}
	if newSize <= 0 {
		return nil, ErrInvalidSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	old, ok := a.regions[uintptr(ptr)]
	if !ok {
		return nil, ErrUnknownPointer
	}

	m, err := mmap.MapAnon(newSize)
	if err != nil {
		// The old mapping is untouched on failure.
		return nil, err
	}

	n := old.Size()
	if n > newSize {
		n = newSize
	}
	copy(m.Bytes()[:n], old.Bytes()[:n])

	newPtr := unsafe.Pointer(&m.Bytes()[0])
	delete(a.regions, uintptr(ptr))
	a.regions[uintptr(newPtr)] = m

	if err := old.Close(); err != nil {
		return newPtr, err
	}
	return newPtr, nil
}

// Free implements Allocator.
func (a *MmapAllocator) Free(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	m, ok := a.regions[uintptr(ptr)]
	if !ok {
		return ErrUnknownPointer
	}
	delete(a.regions, uintptr(ptr))
	return m.Close()
}

// Close implements Allocator. Every outstanding mapping is unmapped; pointers
// issued by this allocator must not be used afterward.
func (a *MmapAllocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	for addr, m := range a.regions {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(a.regions, addr)
	}
	a.closed = true
	return firstErr
}

// Live returns the number of outstanding mappings.
func (a *MmapAllocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.regions)
}
