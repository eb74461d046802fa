package heapguard

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when the underlying allocator cannot satisfy
	// an allocate or resize request. No partial state is created; for a
	// resize the original allocation remains valid and unchanged.
	ErrOutOfMemory = errors.New("underlying allocator out of memory")

	// ErrSizeOverflow is returned when a zeroed-allocation size computation
	// overflows. Rejected before any allocation attempt.
	ErrSizeOverflow = errors.New("allocation size overflows")

	// ErrClosed is returned when allocating from a closed tracker.
	ErrClosed = errors.New("tracker is closed")
)

// ErrAllocFailed indicates a failed allocate or resize request.
//
// The underlying allocator's error (if any) can be accessed via errors.Unwrap
// chains; errors.Is(err, ErrOutOfMemory) holds for all instances.
type ErrAllocFailed struct {
	Size  int
	cause error
}

func (e *ErrAllocFailed) Error() string {
	return fmt.Sprintf("alloc %d bytes: %v", e.Size, e.cause)
}

func (e *ErrAllocFailed) Unwrap() error { return e.cause }

func allocFailed(size int, cause error) error {
	if cause == nil {
		cause = ErrOutOfMemory
	} else if !errors.Is(cause, ErrOutOfMemory) {
		cause = fmt.Errorf("%w: %w", ErrOutOfMemory, cause)
	}
	return &ErrAllocFailed{Size: size, cause: cause}
}
