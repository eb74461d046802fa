// Package heapguard provides a diagnostic allocator shim for Go.
//
// Heapguard intercepts dynamic-memory requests (allocate, resize, release)
// and layers bookkeeping over a pluggable underlying allocator to detect the
// three classic manual-memory bugs:
//
//   - heap buffer overruns and underruns adjacent to an allocation, via fixed
//     sentinel regions flanking every user pointer
//   - double release of the same allocation, via a freed-pointer ledger
//   - leaked allocations still live at shutdown, via the leak report
//
// while exposing aggregate usage statistics (current, peak and cumulative
// bytes, active block count).
//
// # Quick Start
//
//	tracker := heapguard.New()
//	defer tracker.Close()
//
//	p, err := tracker.Alloc(64, heapguard.Here())
//	if err != nil { ... }
//
//	buf := unsafe.Slice((*byte)(p), 64)
//	// ... use buf ...
//
//	tracker.Free(p, heapguard.Here())
//
//	tracker.WriteLeakReport(os.Stderr)
//	tracker.WriteStatsReport(os.Stderr)
//
// # Underlying Allocators
//
// Heapguard never supplies memory itself; it delegates to an Allocator.
// The default is Go-heap backed (pinned byte slices). An mmap backend keeps
// tracked regions entirely off the Go heap:
//
//	tracker := heapguard.New(heapguard.WithAllocator(heapguard.NewMmapAllocator()))
//
// # Diagnostics
//
// Detected anomalies (double free, unknown pointer, guard corruption, size
// overflow) never terminate the process and never change the outcome of the
// triggering operation beyond what the caller already asked for. They are
// delivered as Diagnostic values to a configurable handler; the default
// handler logs through the tracker's slog-based Logger. Diagnostic emission
// can be throttled so a corruption storm cannot flood the sink:
//
//	tracker := heapguard.New(
//	    heapguard.WithDiagnosticHandler(func(d heapguard.Diagnostic) { ... }),
//	    heapguard.WithDiagnosticRateLimit(100, 16),
//	)
//
// # Thread Safety
//
// All tracker operations are safe for concurrent use: one lock is held for
// the full duration of each operation, so ledger and statistics updates are
// linearizable. Single-goroutine programs can opt out explicitly with
// WithoutLocking(); that choice is made at construction, never silently.
package heapguard
