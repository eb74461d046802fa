package heapguard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticKindString(t *testing.T) {
	assert.Equal(t, "double-free", DiagDoubleFree.String())
	assert.Equal(t, "unknown-free", DiagUnknownFree.String())
	assert.Equal(t, "unknown-realloc", DiagUnknownRealloc.String())
	assert.Equal(t, "guard-corruption-front", DiagGuardFront.String())
	assert.Equal(t, "guard-corruption-back", DiagGuardBack.String())
	assert.Equal(t, "size-overflow", DiagOverflow.String())
	assert.Equal(t, "unknown", DiagnosticKind(99).String())
}

func TestDiagnosticRateLimit(t *testing.T) {
	t.Run("SuppressedDiagnosticsAreCounted", func(t *testing.T) {
		// One diagnostic per hour with burst 1: the first report passes, the
		// rest of the test window is deterministically throttled.
		tr, rec := newTestTracker(t, WithDiagnosticRateLimit(1.0/3600, 1))

		ptr, err := tr.Alloc(8, "rl.go:1")
		require.NoError(t, err)
		tr.Free(ptr, "rl.go:2")

		const attempts = 10
		for n := 0; n < attempts; n++ {
			tr.Free(ptr, "rl.go:3")
		}

		assert.Len(t, rec.ofKind(DiagDoubleFree), 1, "only the burst gets through")
		assert.Equal(t, uint64(attempts-1), tr.Stats().DroppedDiagnostics)

		var buf bytes.Buffer
		require.NoError(t, tr.WriteStatsReport(&buf))
		assert.Contains(t, buf.String(), "Dropped Diags:   9")
	})

	t.Run("UnlimitedByDefault", func(t *testing.T) {
		tr, rec := newTestTracker(t)

		ptr, err := tr.Alloc(8, "rl.go:4")
		require.NoError(t, err)
		tr.Free(ptr, "rl.go:5")

		for n := 0; n < 50; n++ {
			tr.Free(ptr, "rl.go:6")
		}

		assert.Len(t, rec.ofKind(DiagDoubleFree), 50)
		assert.Zero(t, tr.Stats().DroppedDiagnostics)
	})
}

func TestFmt0x(t *testing.T) {
	assert.Equal(t, "0x0", fmt0x(0))
	assert.Equal(t, "0xdeadc0de", fmt0x(0xdeadc0de))
}
