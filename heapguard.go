package heapguard

import (
	"math"
	"math/bits"
	"sync"
	"time"
	"unsafe"

	"github.com/hupe1980/heapguard/internal/guard"
	"github.com/hupe1980/heapguard/internal/ledger"
	"github.com/hupe1980/heapguard/resource"
)

// Tracker is a diagnostic allocator shim. It owns an allocation ledger, a
// freed-pointer ledger and the aggregate usage counters, and delegates every
// actual memory decision to its underlying Allocator.
//
// Each Tracker is fully independent; tests can create one per case without
// cross-contamination, and Close tears everything down deterministically.
type Tracker struct {
	mu      sync.Locker
	alloc   Allocator
	allocs  *ledger.Table
	freed   *ledger.FreedSet
	ctrl    *resource.Controller
	logger  *Logger
	handler DiagnosticHandler
	metrics MetricsCollector

	// Counters below are guarded by mu. ActiveAllocs is derived from the
	// ledger itself so it can never drift from the live set.
	currentBytes uint64
	peakBytes    uint64
	totalBytes   uint64
	closed       bool
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// New creates a Tracker. Without options it is safe for concurrent use,
// delegates to the Go-heap allocator, logs diagnostics to stderr and enforces
// no memory limit.
func New(opts ...Option) *Tracker {
	o := options{
		logger:    NewLogger(nil),
		allocator: NewHeapAllocator(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.allocator == nil {
		o.allocator = NewHeapAllocator()
	}

	t := &Tracker{
		alloc:   o.allocator,
		allocs:  ledger.NewTable(),
		freed:   ledger.NewFreedSet(o.freedLedgerCap),
		logger:  o.logger,
		handler: o.handler,
		metrics: o.metrics,
		ctrl: resource.NewController(resource.Config{
			MemoryLimitBytes:  o.memoryLimitBytes,
			DiagnosticsPerSec: o.diagnosticsPerSec,
			DiagnosticBurst:   o.diagnosticBurst,
		}),
	}

	if o.withoutLocking {
		t.mu = nopLocker{}
	} else {
		t.mu = &sync.Mutex{}
	}

	if t.handler == nil {
		t.handler = t.logger.LogDiagnostic
	}

	return t
}

// Alloc requests size bytes from the underlying allocator and begins tracking
// the result. A request for zero bytes is treated as a request for one byte.
// The site annotation is stored verbatim and surfaces in diagnostics and the
// leak report; Here() produces one.
//
// On failure no partial state is created and the error satisfies
// errors.Is(err, ErrOutOfMemory).
func (t *Tracker) Alloc(size int, site string) (unsafe.Pointer, error) {
	start := time.Now()
	ptr, err := t.allocTracked(size, site)
	if t.metrics != nil {
		t.metrics.RecordAlloc(size, time.Since(start), err)
	}
	return ptr, err
}

func (t *Tracker) allocTracked(size int, site string) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, ErrSizeOverflow
	}
	if size == 0 {
		// malloc(0) convention: hand out one byte so the pointer is real.
		size = 1
	}
	total := size + 2*guard.Width
	if total < size {
		return nil, ErrSizeOverflow
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	if !t.ctrl.TryAcquireMemory(int64(total)) {
		return nil, allocFailed(size, nil)
	}

	realPtr, err := t.alloc.Alloc(total)
	if err != nil {
		t.ctrl.ReleaseMemory(int64(total))
		return nil, allocFailed(size, err)
	}

	region := unsafe.Slice((*byte)(realPtr), total)
	guard.Write(region, size)
	user := unsafe.Add(realPtr, guard.Width)

	// The underlying allocator may legitimately reissue a released address.
	// The freed ledger must forget it, or the next release of this pointer
	// would be misreported as a double free.
	t.freed.Remove(uintptr(user))

	t.allocs.Insert(&ledger.Record{
		Real:      realPtr,
		User:      user,
		Requested: size,
		Total:     total,
		Site:      site,
	})

	t.currentBytes += uint64(size)
	t.totalBytes += uint64(size)
	if t.currentBytes > t.peakBytes {
		t.peakBytes = t.currentBytes
	}

	return user, nil
}

// AllocZeroed requests count*elemSize zeroed bytes. It fails with
// ErrSizeOverflow, before any allocation attempt, if the size computation
// would overflow.
func (t *Tracker) AllocZeroed(count, elemSize int, site string) (unsafe.Pointer, error) {
	start := time.Now()
	ptr, size, err := t.allocZeroed(count, elemSize, site)
	if t.metrics != nil {
		t.metrics.RecordAlloc(size, time.Since(start), err)
	}
	return ptr, err
}

func (t *Tracker) allocZeroed(count, elemSize int, site string) (unsafe.Pointer, int, error) {
	if count < 0 || elemSize < 0 {
		t.emit(Diagnostic{Kind: DiagOverflow, Site: site})
		return nil, 0, ErrSizeOverflow
	}

	hi, lo := bits.Mul64(uint64(count), uint64(elemSize))
	if hi != 0 || lo > uint64(math.MaxInt-2*guard.Width) {
		t.emit(Diagnostic{Kind: DiagOverflow, Site: site})
		return nil, 0, ErrSizeOverflow
	}
	size := int(lo)

	ptr, err := t.allocTracked(size, site)
	if err != nil {
		return nil, size, err
	}

	// Fresh Go-heap and mmap memory is already zeroed, but the Allocator
	// contract does not promise it (a recycling backend may not).
	n := size
	if n == 0 {
		n = 1
	}
	clear(unsafe.Slice((*byte)(ptr), n))

	return ptr, size, nil
}

// Realloc resizes a tracked allocation to newSize bytes, preserving the
// surviving prefix.
//
//   - Realloc(nil, n) is equivalent to Alloc(n).
//   - Realloc(p, 0) is equivalent to Free(p) and returns nil, nil.
//   - An unknown pointer degrades to an untracked pass-through to the
//     underlying allocator, after a DiagUnknownRealloc diagnostic.
//
// On failure the original allocation remains valid and unchanged.
func (t *Tracker) Realloc(ptr unsafe.Pointer, newSize int, site string) (unsafe.Pointer, error) {
	start := time.Now()
	p, err := t.realloc(ptr, newSize, site)
	if t.metrics != nil {
		t.metrics.RecordRealloc(newSize, time.Since(start), err)
	}
	return p, err
}

func (t *Tracker) realloc(ptr unsafe.Pointer, newSize int, site string) (unsafe.Pointer, error) {
	if ptr == nil {
		return t.allocTracked(newSize, site)
	}
	if newSize == 0 {
		t.free(ptr, site)
		return nil, nil
	}
	if newSize < 0 {
		return nil, ErrSizeOverflow
	}

	var diags []Diagnostic
	defer func() {
		for _, d := range diags {
			t.emit(d)
		}
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	addr := uintptr(ptr)
	rec, ok := t.allocs.Lookup(addr)
	if !ok {
		diags = append(diags, Diagnostic{Kind: DiagUnknownRealloc, Pointer: addr, Size: newSize, Site: site})
		// Untracked pass-through. The underlying allocator rejects addresses
		// it does not own, so this cannot corrupt unrelated state.
		return t.alloc.Realloc(ptr, newSize)
	}

	// Advisory: a corruption found here is reported but never blocks the
	// resize.
	t.checkGuardsLocked(rec, site, &diags)

	oldSize := rec.Requested
	oldTotal := rec.Total
	newTotal := newSize + 2*guard.Width
	if newTotal < newSize {
		return nil, ErrSizeOverflow
	}

	if !t.ctrl.TryAcquireMemory(int64(newTotal)) {
		return nil, allocFailed(newSize, nil)
	}

	newReal, err := t.alloc.Realloc(rec.Real, newTotal)
	if err != nil {
		t.ctrl.ReleaseMemory(int64(newTotal))
		return nil, allocFailed(newSize, err)
	}
	t.ctrl.ReleaseMemory(int64(oldTotal))

	rec.Real = newReal
	rec.User = unsafe.Add(newReal, guard.Width)
	rec.Requested = newSize
	rec.Total = newTotal
	t.allocs.Rekey(addr, rec)
	t.freed.Remove(uintptr(rec.User))

	region := unsafe.Slice((*byte)(newReal), newTotal)
	guard.Write(region, newSize)

	t.currentBytes -= uint64(oldSize)
	t.currentBytes += uint64(newSize)
	if newSize > oldSize {
		t.totalBytes += uint64(newSize - oldSize)
	}
	if t.currentBytes > t.peakBytes {
		t.peakBytes = t.currentBytes
	}

	return rec.User, nil
}

// Free releases a tracked allocation.
//
//   - Free(nil) is a no-op.
//   - A pointer already in the freed ledger is a double free: reported, and
//     the underlying allocator is NOT called a second time.
//   - An unknown pointer is reported and forwarded to the underlying
//     allocator as a best effort; statistics are untouched.
//
// Guard corruption found during release is reported and never blocks the
// release.
func (t *Tracker) Free(ptr unsafe.Pointer, site string) {
	start := time.Now()
	t.free(ptr, site)
	if t.metrics != nil {
		t.metrics.RecordFree(time.Since(start))
	}
}

func (t *Tracker) free(ptr unsafe.Pointer, site string) {
	if ptr == nil {
		return
	}

	var diags []Diagnostic
	defer func() {
		for _, d := range diags {
			t.emit(d)
		}
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	addr := uintptr(ptr)
	if t.freed.Contains(addr) {
		diags = append(diags, Diagnostic{Kind: DiagDoubleFree, Pointer: addr, Site: site})
		return
	}

	rec, ok := t.allocs.Lookup(addr)
	if !ok {
		diags = append(diags, Diagnostic{Kind: DiagUnknownFree, Pointer: addr, Site: site})
		// Best effort: the caller expects the memory gone. The underlying
		// allocator rejects addresses it does not own.
		if err := t.alloc.Free(ptr); err != nil {
			t.logger.Warn("best-effort free of unknown pointer rejected",
				"pointer", fmt0x(addr), "site", site, "error", err)
		}
		return
	}

	t.checkGuardsLocked(rec, site, &diags)

	t.allocs.Remove(addr)
	t.currentBytes -= uint64(rec.Requested)
	t.freed.Insert(addr)

	if err := t.alloc.Free(rec.Real); err != nil {
		t.logger.Warn("underlying free failed",
			"pointer", fmt0x(addr), "site", site, "error", err)
	}
	t.ctrl.ReleaseMemory(int64(rec.Total))
}

// FreeAll force-releases every tracked allocation and clears both ledgers.
// CurrentBytes and ActiveAllocs drop to zero; PeakBytes and TotalBytes are
// historical and survive. Previously issued pointers must not be used
// afterward.
func (t *Tracker) FreeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, rec := range t.allocs.Ordered() {
		if err := t.alloc.Free(rec.Real); err != nil {
			t.logger.Warn("underlying free failed",
				"pointer", fmt0x(uintptr(rec.User)), "site", rec.Site, "error", err)
		}
		t.ctrl.ReleaseMemory(int64(rec.Total))
	}
	t.allocs.Clear()
	t.freed.Clear()
	t.currentBytes = 0
}

// Stats returns a point-in-time copy of the aggregate counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	s := Stats{
		CurrentBytes: t.currentBytes,
		PeakBytes:    t.peakBytes,
		TotalBytes:   t.totalBytes,
		ActiveAllocs: uint64(t.allocs.Len()),
	}
	t.mu.Unlock()

	s.DroppedDiagnostics = t.ctrl.DroppedDiagnostics()
	return s
}

// checkGuardsLocked verifies both sentinels of rec and queues a diagnostic
// per destroyed side. Verification never mutates memory and never aborts the
// operation in progress.
func (t *Tracker) checkGuardsLocked(rec *ledger.Record, site string, diags *[]Diagnostic) {
	region := unsafe.Slice((*byte)(rec.Real), rec.Total)
	front, back := guard.Check(region, rec.Requested)
	if !front {
		*diags = append(*diags, Diagnostic{
			Kind:      DiagGuardFront,
			Pointer:   uintptr(rec.User),
			Size:      rec.Requested,
			Site:      site,
			AllocSite: rec.Site,
		})
	}
	if !back {
		*diags = append(*diags, Diagnostic{
			Kind:      DiagGuardBack,
			Pointer:   uintptr(rec.User),
			Size:      rec.Requested,
			Site:      site,
			AllocSite: rec.Site,
		})
	}
}

// emit delivers one diagnostic outside the tracker lock, respecting the
// configured throttle.
func (t *Tracker) emit(d Diagnostic) {
	if !t.ctrl.AllowDiagnostic() {
		return
	}
	if t.metrics != nil {
		t.metrics.RecordDiagnostic(d.Kind)
	}
	t.handler(d)
}
