package heapguard

// Close force-releases every tracked allocation, clears both ledgers and
// closes the underlying allocator. It is idempotent.
//
// After Close, allocation operations fail with ErrClosed and previously
// issued pointers must not be used.
func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}

	t.FreeAll()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	return t.alloc.Close()
}
