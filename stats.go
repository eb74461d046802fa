package heapguard

// Stats is a point-in-time copy of the tracker's aggregate counters.
//
// The counters are updated transactionally with ledger mutations: a snapshot
// taken while other goroutines allocate is always internally consistent with
// some linearization of those operations.
type Stats struct {
	// CurrentBytes is the sum of requested sizes of all live allocations.
	// Sentinel padding is excluded; it is tracker overhead, not client memory.
	CurrentBytes uint64
	// PeakBytes is the high-water mark of CurrentBytes. Monotone.
	PeakBytes uint64
	// TotalBytes is the cumulative sum of all bytes ever attributed to live
	// requests. Monotone: grows on allocation and on growing resize, never
	// shrinks.
	TotalBytes uint64
	// ActiveAllocs is the number of live allocations.
	ActiveAllocs uint64
	// DroppedDiagnostics is the number of diagnostics suppressed by the
	// emission throttle. Zero unless WithDiagnosticRateLimit is configured.
	DroppedDiagnostics uint64
}
