package mem

import (
	"errors"
	"sync"
	"unsafe"
)

var (
	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("mem: invalid allocation size")
	// ErrUnknownPointer is returned when an address was not issued by this
	// allocator (or has already been returned to it).
	ErrUnknownPointer = errors.New("mem: pointer not owned by this allocator")
	// ErrClosed is returned when allocating from a closed allocator.
	ErrClosed = errors.New("mem: allocator is closed")
)

// Allocator is the memory-supply mechanism a tracker delegates to.
//
// Implementations must be safe for concurrent use. Realloc and Free return
// ErrUnknownPointer for addresses the allocator does not currently own, which
// is what makes an untracked pass-through safe: it degrades to an error
// instead of corrupting unrelated state.
type Allocator interface {
	// Alloc returns a pointer to size zeroable bytes.
	Alloc(size int) (unsafe.Pointer, error)
	// Realloc resizes the region at ptr to newSize bytes, preserving the
	// prefix. On failure the original region remains valid and unchanged.
	Realloc(ptr unsafe.Pointer, newSize int) (unsafe.Pointer, error)
	// Free returns the region at ptr.
	Free(ptr unsafe.Pointer) error
	// Close releases every outstanding region.
	Close() error
}

// HeapAllocator supplies memory from the Go heap. Each region is a byte slice
// pinned in a registry keyed by its base address, so the garbage collector
// keeps the array alive while the raw pointer is outstanding.
type HeapAllocator struct {
	mu     sync.Mutex
	pins   map[uintptr][]byte
	closed bool
}

// NewHeapAllocator creates a Go-heap backed allocator.
func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{
		pins: make(map[uintptr][]byte),
	}
}

// Alloc implements Allocator.
func (h *HeapAllocator) Alloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	buf := make([]byte, size)
	ptr := unsafe.Pointer(&buf[0])
	h.pins[uintptr(ptr)] = buf
	return ptr, nil
}

// Realloc implements Allocator.
func (h *HeapAllocator) Realloc(ptr unsafe.Pointer, newSize int) (unsafe.Pointer, error) {
	if ptr == nil {
		return h.Alloc(newSize)
	}
	if newSize <= 0 {
		return nil, ErrInvalidSize
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	old, ok := h.pins[uintptr(ptr)]
	if !ok {
		return nil, ErrUnknownPointer
	}

	buf := make([]byte, newSize)
	copy(buf, old)
	newPtr := unsafe.Pointer(&buf[0])

	delete(h.pins, uintptr(ptr))
	h.pins[uintptr(newPtr)] = buf
	return newPtr, nil
}

// Free implements Allocator.
func (h *HeapAllocator) Free(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.pins[uintptr(ptr)]; !ok {
		return ErrUnknownPointer
	}
	delete(h.pins, uintptr(ptr))
	return nil
}

// Close implements Allocator. Dropping the pins makes every outstanding
// region eligible for collection.
func (h *HeapAllocator) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pins = make(map[uintptr][]byte)
	h.closed = true
	return nil
}

// Live returns the number of outstanding regions. Used by leak-oriented tests.
func (h *HeapAllocator) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pins)
}
