package heapguard

type options struct {
	logger            *Logger
	allocator         Allocator
	handler           DiagnosticHandler
	metrics           MetricsCollector
	memoryLimitBytes  int64
	diagnosticsPerSec float64
	diagnosticBurst   int
	freedLedgerCap    uint64
	withoutLocking    bool
}

// Option configures Tracker construction.
type Option func(*options)

// WithLogger configures the logger used for default diagnostic output and
// lifecycle events. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithAllocator configures the underlying allocator the tracker delegates to.
//
// If nil is passed, the default Go-heap allocator is used.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithDiagnosticHandler configures where detected anomalies are delivered.
// It replaces the default handler (which logs through the tracker's Logger),
// so a custom handler that still wants log output must log itself.
func WithDiagnosticHandler(h DiagnosticHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithMemoryLimit configures a hard budget, in bytes, for memory handed out
// by the tracker (including sentinel padding). Requests that would exceed the
// budget fail with ErrOutOfMemory instead of reaching the underlying
// allocator, which makes out-of-memory behavior deterministic and testable.
//
// If bytes <= 0, no limit is enforced.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimitBytes = bytes
	}
}

// WithDiagnosticRateLimit throttles diagnostic emission to perSec events with
// the given burst. Suppressed diagnostics are counted and surfaced in Stats
// and the stats report, never dropped silently.
//
// If perSec <= 0, diagnostics are never throttled (the default).
func WithDiagnosticRateLimit(perSec float64, burst int) Option {
	return func(o *options) {
		o.diagnosticsPerSec = perSec
		o.diagnosticBurst = burst
	}
}

// WithFreedLedgerCap bounds the freed-pointer ledger to at most n addresses.
// Once the cap is exceeded the ledger is cleared wholesale, forgetting
// double-free history — the documented trade-off that bounds memory growth in
// long-running processes.
//
// If n == 0 (the default), the ledger grows without bound.
func WithFreedLedgerCap(n uint64) Option {
	return func(o *options) {
		o.freedLedgerCap = n
	}
}

// WithoutLocking disables the tracker's internal lock.
//
// This is an explicit, construction-time opt-out for single-goroutine
// programs that want to shave the lock overhead off every operation. A
// tracker built this way is NOT safe for concurrent use; using it from more
// than one goroutine is a data race.
func WithoutLocking() Option {
	return func(o *options) {
		o.withoutLocking = true
	}
}
