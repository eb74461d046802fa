package heapguard

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordAlloc is called after each allocate operation.
	// size is the requested byte count, duration is the time taken,
	// err is nil if successful.
	RecordAlloc(size int, duration time.Duration, err error)

	// RecordRealloc is called after each resize operation.
	RecordRealloc(newSize int, duration time.Duration, err error)

	// RecordFree is called after each release operation.
	RecordFree(duration time.Duration)

	// RecordDiagnostic is called for each emitted diagnostic.
	RecordDiagnostic(kind DiagnosticKind)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordRealloc(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFree(time.Duration)                {}
func (NoopMetricsCollector) RecordDiagnostic(DiagnosticKind)         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount        atomic.Int64
	AllocErrors       atomic.Int64
	AllocTotalNanos   atomic.Int64
	ReallocCount      atomic.Int64
	ReallocErrors     atomic.Int64
	ReallocTotalNanos atomic.Int64
	FreeCount         atomic.Int64
	FreeTotalNanos    atomic.Int64
	DiagnosticCount   atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(size int, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
	}
}

// RecordRealloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRealloc(newSize int, duration time.Duration, err error) {
	b.ReallocCount.Add(1)
	b.ReallocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReallocErrors.Add(1)
	}
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(duration time.Duration) {
	b.FreeCount.Add(1)
	b.FreeTotalNanos.Add(duration.Nanoseconds())
}

// RecordDiagnostic implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDiagnostic(DiagnosticKind) {
	b.DiagnosticCount.Add(1)
}
