// Package mmap provides anonymous memory mappings for the mmap-backed
// underlying allocator.
//
// # Overview
//
// MapAnon() creates read-write anonymous mappings outside the Go heap, so
// tracked regions are invisible to the garbage collector and behave like
// memory obtained from a C allocator: they live until explicitly unmapped.
//
// # Usage
//
//	m, err := mmap.MapAnon(size)
//	if err != nil { ... }
//	defer m.Close()
//
//	// Direct access to the mapped region
//	data := m.Bytes()
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessRandom)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (demand-paged like Unix
//     mmap, avoids paging-file commitment upfront; madvise is a no-op)
//
// # Thread Safety
//
// Mapping is safe for concurrent read access. Close() is idempotent and
// protected by atomic operations. Callers must ensure no goroutines access
// Bytes() after Close() returns.
package mmap
