package heapguard

import (
	"fmt"
	"io"
)

const reportRule = "----------------------------------------------------"

// leakEntry is the per-allocation view captured for a report, decoupled from
// the live ledger so the sink can block without holding the tracker lock.
type leakEntry struct {
	pointer uintptr
	size    int
	site    string
}

// WriteLeakReport writes a listing of every currently-live allocation to w:
// pointer, requested size and the call site that created it, in allocation
// order. Reads the ledger only; nothing is released or mutated.
func (t *Tracker) WriteLeakReport(w io.Writer) error {
	t.mu.Lock()
	records := t.allocs.Ordered()
	entries := make([]leakEntry, len(records))
	for i, rec := range records {
		entries[i] = leakEntry{
			pointer: uintptr(rec.User),
			size:    rec.Requested,
			site:    rec.Site,
		}
	}
	t.mu.Unlock()

	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "\n==== Memory Leak Check ====\nNo memory leaks detected.\n")
		return err
	}

	if _, err := fmt.Fprintf(w, "\n==== Memory Leak Check ====\nPotential leaks:\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n  Pointer            Size     Location\n%s\n", reportRule, reportRule); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "  %-16s %7d   %s\n", fmt0x(e.pointer), e.size, e.site); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatsReport writes the aggregate usage counters to w.
func (t *Tracker) WriteStatsReport(w io.Writer) error {
	s := t.Stats()

	_, err := fmt.Fprintf(w,
		"\n==== Memory Statistics ====\n"+
			"  Current In-Use:  %d bytes\n"+
			"  Total Allocated: %d bytes (cumulative)\n"+
			"  Peak In-Use:     %d bytes\n"+
			"  Active Blocks:   %d\n",
		s.CurrentBytes, s.TotalBytes, s.PeakBytes, s.ActiveAllocs)
	if err != nil {
		return err
	}

	if s.DroppedDiagnostics > 0 {
		_, err = fmt.Fprintf(w, "  Dropped Diags:   %d\n", s.DroppedDiagnostics)
	}
	return err
}
