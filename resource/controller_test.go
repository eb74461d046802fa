package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	ok := c.TryAcquireMemory(50)
	require.True(t, ok)
	assert.Equal(t, int64(50), c.MemoryUsage())

	ok = c.TryAcquireMemory(40)
	require.True(t, ok)
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Would exceed the limit.
	ok = c.TryAcquireMemory(20)
	assert.False(t, ok)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	ok = c.TryAcquireMemory(20)
	assert.True(t, ok)
}

func TestController_MemoryUnlimited(t *testing.T) {
	c := NewController(Config{})

	ok := c.TryAcquireMemory(1 << 40)
	require.True(t, ok)
	assert.Equal(t, int64(1<<40), c.MemoryUsage())

	c.ReleaseMemory(1 << 40)
	assert.Equal(t, int64(0), c.MemoryUsage())
}

func TestController_NilIsPermissive(t *testing.T) {
	var c *Controller

	assert.True(t, c.TryAcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.True(t, c.AllowDiagnostic())
	assert.Equal(t, uint64(0), c.DroppedDiagnostics())
}

func TestController_Diagnostics(t *testing.T) {
	c := NewController(Config{DiagnosticsPerSec: 1, DiagnosticBurst: 2})

	assert.True(t, c.AllowDiagnostic())
	assert.True(t, c.AllowDiagnostic())

	// Burst exhausted.
	assert.False(t, c.AllowDiagnostic())
	assert.Equal(t, uint64(1), c.DroppedDiagnostics())
}

func TestController_DiagnosticsUnlimited(t *testing.T) {
	c := NewController(Config{})

	for i := 0; i < 1000; i++ {
		require.True(t, c.AllowDiagnostic())
	}
	assert.Equal(t, uint64(0), c.DroppedDiagnostics())
}

func TestRateLimitedWriter(t *testing.T) {
	t.Run("PassThroughUnlimited", func(t *testing.T) {
		c := NewController(Config{})
		var buf bytes.Buffer

		w := NewRateLimitedWriter(context.Background(), &buf, c)
		n, err := w.Write([]byte("leak report"))
		require.NoError(t, err)
		assert.Equal(t, 11, n)
		assert.Equal(t, "leak report", buf.String())
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 1})
		var buf bytes.Buffer

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		w := NewRateLimitedWriter(ctx, &buf, c)
		_, _ = w.Write([]byte("x")) // consumes the initial burst

		_, err := w.Write(bytes.Repeat([]byte("y"), 1))
		assert.Error(t, err)
	})
}
