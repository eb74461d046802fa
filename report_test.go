package heapguard

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLeakReport(t *testing.T) {
	t.Run("NoLeaks", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		var buf bytes.Buffer
		require.NoError(t, tr.WriteLeakReport(&buf))

		assert.Contains(t, buf.String(), "==== Memory Leak Check ====")
		assert.Contains(t, buf.String(), "No memory leaks detected.")
	})

	t.Run("ListsLiveAllocationsInOrder", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		p1, err := tr.Alloc(10, "main.go:42")
		require.NoError(t, err)
		p2, err := tr.Alloc(20, "main.go:57")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, tr.WriteLeakReport(&buf))
		out := buf.String()

		assert.Contains(t, out, "Potential leaks:")
		assert.Contains(t, out, "Pointer")
		assert.Contains(t, out, "Location")
		assert.Contains(t, out, fmt0x(uintptr(p1)))
		assert.Contains(t, out, fmt0x(uintptr(p2)))
		assert.Contains(t, out, "main.go:42")
		assert.Contains(t, out, "main.go:57")
		assert.Less(t, strings.Index(out, "main.go:42"), strings.Index(out, "main.go:57"),
			"rows appear in allocation order")

		var lines10 int
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "main.go:42") {
				assert.Contains(t, line, "10")
				lines10++
			}
		}
		assert.Equal(t, 1, lines10)
	})

	t.Run("ShrinksToNoLeaksAsPointersRelease", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		p1, err := tr.Alloc(10, "first.go:1")
		require.NoError(t, err)
		p2, err := tr.Alloc(20, "second.go:1")
		require.NoError(t, err)

		tr.Free(p1, "first.go:2")

		var buf bytes.Buffer
		require.NoError(t, tr.WriteLeakReport(&buf))
		assert.NotContains(t, buf.String(), "first.go:1")
		assert.Contains(t, buf.String(), "second.go:1")
		assert.Contains(t, buf.String(), "20")

		tr.Free(p2, "second.go:2")

		buf.Reset()
		require.NoError(t, tr.WriteLeakReport(&buf))
		assert.Contains(t, buf.String(), "No memory leaks detected.")
	})

	t.Run("FreedAllocationsDropOut", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		p1, err := tr.Alloc(10, "keep.go:1")
		require.NoError(t, err)
		p2, err := tr.Alloc(20, "drop.go:1")
		require.NoError(t, err)
		tr.Free(p2, "drop.go:2")

		var buf bytes.Buffer
		require.NoError(t, tr.WriteLeakReport(&buf))

		assert.Contains(t, buf.String(), "keep.go:1")
		assert.NotContains(t, buf.String(), "drop.go:1")

		tr.Free(p1, "keep.go:2")
	})
}

func TestWriteStatsReport(t *testing.T) {
	tr, _ := newTestTracker(t)

	p, err := tr.Alloc(100, "s.go:1")
	require.NoError(t, err)
	tr.Free(p, "s.go:2")

	var buf bytes.Buffer
	require.NoError(t, tr.WriteStatsReport(&buf))
	out := buf.String()

	assert.Contains(t, out, "==== Memory Statistics ====")
	assert.Contains(t, out, "Current In-Use:  0 bytes")
	assert.Contains(t, out, "Total Allocated: 100 bytes (cumulative)")
	assert.Contains(t, out, "Peak In-Use:     100 bytes")
	assert.Contains(t, out, "Active Blocks:   0")
	assert.NotContains(t, out, "Dropped Diags", "only shown when diagnostics were suppressed")
}
