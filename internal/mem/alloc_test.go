package mem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAllocator(t *testing.T, a Allocator) {
	t.Helper()

	t.Run("AllocWriteRead", func(t *testing.T) {
		ptr, err := a.Alloc(64)
		require.NoError(t, err)
		require.NotNil(t, ptr)

		data := unsafe.Slice((*byte)(ptr), 64)
		for i := range data {
			data[i] = byte(i)
		}
		for i := range data {
			require.Equal(t, byte(i), data[i])
		}

		require.NoError(t, a.Free(ptr))
	})

	t.Run("InvalidSize", func(t *testing.T) {
		_, err := a.Alloc(0)
		assert.ErrorIs(t, err, ErrInvalidSize)

		_, err = a.Alloc(-5)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("ReallocPreservesPrefix", func(t *testing.T) {
		ptr, err := a.Alloc(16)
		require.NoError(t, err)

		data := unsafe.Slice((*byte)(ptr), 16)
		for i := range data {
			data[i] = byte(0x10 + i)
		}

		grown, err := a.Realloc(ptr, 64)
		require.NoError(t, err)

		grownData := unsafe.Slice((*byte)(grown), 64)
		for i := 0; i < 16; i++ {
			require.Equal(t, byte(0x10+i), grownData[i])
		}

		shrunk, err := a.Realloc(grown, 8)
		require.NoError(t, err)

		shrunkData := unsafe.Slice((*byte)(shrunk), 8)
		for i := 0; i < 8; i++ {
			require.Equal(t, byte(0x10+i), shrunkData[i])
		}

		require.NoError(t, a.Free(shrunk))
	})

	t.Run("ReallocNilIsAlloc", func(t *testing.T) {
		ptr, err := a.Realloc(nil, 32)
		require.NoError(t, err)
		require.NotNil(t, ptr)
		require.NoError(t, a.Free(ptr))
	})

	t.Run("UnknownPointer", func(t *testing.T) {
		bogus := unsafe.Pointer(uintptr(0xDEAD)) //nolint:govet,gosec // never dereferenced

		err := a.Free(bogus)
		assert.ErrorIs(t, err, ErrUnknownPointer)

		_, err = a.Realloc(bogus, 16)
		assert.ErrorIs(t, err, ErrUnknownPointer)
	})

	t.Run("DoubleFreeRejected", func(t *testing.T) {
		ptr, err := a.Alloc(8)
		require.NoError(t, err)

		require.NoError(t, a.Free(ptr))
		assert.ErrorIs(t, a.Free(ptr), ErrUnknownPointer)
	})
}

func TestHeapAllocator(t *testing.T) {
	a := NewHeapAllocator()
	defer a.Close()

	testAllocator(t, a)

	t.Run("LiveCount", func(t *testing.T) {
		before := a.Live()
		ptr, err := a.Alloc(8)
		require.NoError(t, err)
		assert.Equal(t, before+1, a.Live())
		require.NoError(t, a.Free(ptr))
		assert.Equal(t, before, a.Live())
	})

	t.Run("ClosedAllocFails", func(t *testing.T) {
		c := NewHeapAllocator()
		require.NoError(t, c.Close())
		_, err := c.Alloc(8)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestMmapAllocator(t *testing.T) {
	a := NewMmapAllocator()
	defer a.Close()

	testAllocator(t, a)

	t.Run("CloseReleasesEverything", func(t *testing.T) {
		c := NewMmapAllocator()
		for i := 0; i < 4; i++ {
			_, err := c.Alloc(128)
			require.NoError(t, err)
		}
		require.Equal(t, 4, c.Live())
		require.NoError(t, c.Close())
		assert.Equal(t, 0, c.Live())

		_, err := c.Alloc(8)
		assert.ErrorIs(t, err, ErrClosed)
	})
}
