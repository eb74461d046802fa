package heapguard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, ct := range []CompressionType{CompressionNone, CompressionLZ4, CompressionZSTD} {
			tr, _ := newTestTracker(t)

			p1, err := tr.Alloc(10, "snap.go:1")
			require.NoError(t, err)
			_, err = tr.Alloc(20, "snap.go:2")
			require.NoError(t, err)
			tr.Free(p1, "snap.go:3")

			var buf bytes.Buffer
			require.NoError(t, tr.WriteSnapshot(&buf, WithSnapshotCompression(ct)))

			snap, err := ReadSnapshot(&buf)
			require.NoError(t, err)

			assert.Equal(t, tr.Stats(), snap.Stats)
			require.Len(t, snap.Records, 1)
			assert.Equal(t, 20, snap.Records[0].Size)
			assert.Equal(t, "snap.go:2", snap.Records[0].Site)
			assert.NotZero(t, snap.Records[0].Pointer)
		}
	})

	t.Run("EmptyLedger", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		var buf bytes.Buffer
		require.NoError(t, tr.WriteSnapshot(&buf))

		snap, err := ReadSnapshot(&buf)
		require.NoError(t, err)
		assert.Empty(t, snap.Records)
		assert.Equal(t, uint64(0), snap.Stats.CurrentBytes)
	})

	t.Run("RecordsKeepAllocationOrder", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		for i := 0; i < 16; i++ {
			_, err := tr.Alloc(8*(i+1), "ord.go:1")
			require.NoError(t, err)
		}

		var buf bytes.Buffer
		require.NoError(t, tr.WriteSnapshot(&buf))
		snap, err := ReadSnapshot(&buf)
		require.NoError(t, err)

		require.Len(t, snap.Records, 16)
		for i, rec := range snap.Records {
			assert.Equal(t, 8*(i+1), rec.Size)
			if i > 0 {
				assert.Greater(t, rec.Seq, snap.Records[i-1].Seq)
			}
		}
	})

	t.Run("InvalidMagic", func(t *testing.T) {
		_, err := ReadSnapshot(bytes.NewReader([]byte("not a snapshot stream")))
		assert.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("TruncatedHeader", func(t *testing.T) {
		_, err := ReadSnapshot(bytes.NewReader([]byte{0x44}))
		assert.Error(t, err)
	})

	t.Run("UnsupportedVersion", func(t *testing.T) {
		tr, _ := newTestTracker(t)

		var buf bytes.Buffer
		require.NoError(t, tr.WriteSnapshot(&buf))

		raw := buf.Bytes()
		raw[4] = 0xFF // corrupt the version field

		_, err := ReadSnapshot(bytes.NewReader(raw))
		assert.ErrorIs(t, err, ErrInvalidVersion)
	})
}
