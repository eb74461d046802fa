package heapguard

import "strconv"

// DiagnosticKind classifies a detected memory anomaly.
type DiagnosticKind int

const (
	// DiagDoubleFree reports a release of a pointer that was already
	// released and not reissued since. The second release is a no-op.
	DiagDoubleFree DiagnosticKind = iota
	// DiagUnknownFree reports a release of a pointer this tracker never
	// issued. The release is still forwarded to the underlying allocator as
	// a best effort.
	DiagUnknownFree
	// DiagUnknownRealloc reports a resize of a pointer this tracker never
	// issued. The resize degrades to an untracked pass-through.
	DiagUnknownRealloc
	// DiagGuardFront reports a destroyed front sentinel: the client wrote
	// before the start of its region.
	DiagGuardFront
	// DiagGuardBack reports a destroyed back sentinel: the client wrote past
	// the end of its region.
	DiagGuardBack
	// DiagOverflow reports a zeroed-allocation size computation that would
	// overflow. The request is rejected before any allocation attempt.
	DiagOverflow
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagDoubleFree:
		return "double-free"
	case DiagUnknownFree:
		return "unknown-free"
	case DiagUnknownRealloc:
		return "unknown-realloc"
	case DiagGuardFront:
		return "guard-corruption-front"
	case DiagGuardBack:
		return "guard-corruption-back"
	case DiagOverflow:
		return "size-overflow"
	default:
		return "unknown"
	}
}

// Diagnostic describes one detected anomaly. Diagnostics are advisory: the
// triggering operation completes (or degrades) exactly as documented for its
// kind, and the process never terminates because of one.
type Diagnostic struct {
	Kind DiagnosticKind
	// Pointer is the user address involved, zero when not applicable.
	Pointer uintptr
	// Size is the requested size in bytes where known.
	Size int
	// Site is the call site of the operation that triggered the diagnostic.
	Site string
	// AllocSite is the call site that created the allocation, where known.
	// For guard corruption this points at the owner of the overrun region.
	AllocSite string
}

// DiagnosticHandler receives detected anomalies.
//
// Handlers are called outside the tracker's lock, so they may safely call
// back into the tracker. They must be safe for concurrent use.
type DiagnosticHandler func(d Diagnostic)

func fmt0x(p uintptr) string {
	return "0x" + strconv.FormatUint(uint64(p), 16)
}
