package heapguard

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/heapguard/internal/conv"
)

// Snapshot file layout:
//
//	[Magic uint32][Version uint16][Compression uint8]
//	[UncompressedSize uint32][CompressedSize uint32][Payload...]
//
// The payload is the JSON encoding of Snapshot. CompressedSize == 0 means the
// payload is stored uncompressed, which also happens when compression does not
// actually shrink it.
const (
	// SnapshotMagic identifies a heapguard snapshot stream ("HPGD").
	SnapshotMagic = 0x48504744
	// SnapshotVersion is the current snapshot format version.
	SnapshotVersion = 1

	snapshotHeaderSize = 7
	blockHeaderSize    = 8
)

var (
	// ErrInvalidMagic indicates the stream does not start with a snapshot header.
	ErrInvalidMagic = errors.New("invalid snapshot magic number")
	// ErrInvalidVersion indicates a snapshot written by an incompatible version.
	ErrInvalidVersion = errors.New("unsupported snapshot version")
)

// CompressionType selects the block compression applied to the snapshot payload.
type CompressionType uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone CompressionType = 0
	// CompressionLZ4 applies LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD applies ZSTD block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

// SnapshotRecord is the serialized form of one live allocation.
type SnapshotRecord struct {
	Pointer uint64 `json:"pointer"`
	Size    int    `json:"size"`
	Site    string `json:"site,omitempty"`
	Seq     uint64 `json:"seq"`
}

// Snapshot is a point-in-time copy of a tracker's ledger and counters,
// decoded from a stream written by WriteSnapshot. Pointers in a snapshot are
// plain integers for offline triage; they must never be dereferenced.
type Snapshot struct {
	Stats   Stats            `json:"stats"`
	Records []SnapshotRecord `json:"records"`
}

// SnapshotOption configures snapshot encoding.
type SnapshotOption func(*snapshotOptions)

type snapshotOptions struct {
	compression CompressionType
}

// WithSnapshotCompression selects the payload compression. The default is
// CompressionZSTD.
func WithSnapshotCompression(ct CompressionType) SnapshotOption {
	return func(o *snapshotOptions) {
		o.compression = ct
	}
}

// WriteSnapshot serializes the current ledger and counters to w so a live
// process can be triaged offline. The ledger is copied under the tracker lock
// and encoded afterwards, so a slow writer never stalls allocation traffic.
func (t *Tracker) WriteSnapshot(w io.Writer, opts ...SnapshotOption) error {
	o := snapshotOptions{compression: CompressionZSTD}
	for _, opt := range opts {
		opt(&o)
	}

	t.mu.Lock()
	records := t.allocs.Ordered()
	snap := Snapshot{
		Stats: Stats{
			CurrentBytes: t.currentBytes,
			PeakBytes:    t.peakBytes,
			TotalBytes:   t.totalBytes,
			ActiveAllocs: uint64(t.allocs.Len()),
		},
		Records: make([]SnapshotRecord, len(records)),
	}
	for i, rec := range records {
		snap.Records[i] = SnapshotRecord{
			Pointer: uint64(uintptr(rec.User)),
			Size:    rec.Requested,
			Site:    rec.Site,
			Seq:     rec.Seq,
		}
	}
	t.mu.Unlock()
	snap.Stats.DroppedDiagnostics = t.ctrl.DroppedDiagnostics()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	header := make([]byte, snapshotHeaderSize)
	binary.LittleEndian.PutUint32(header[0:], SnapshotMagic)
	binary.LittleEndian.PutUint16(header[4:], SnapshotVersion)
	header[6] = byte(o.compression)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	block, err := compressBlock(payload, o.compression)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if _, err := w.Write(block); err != nil {
		return fmt.Errorf("write snapshot payload: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot previously written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	header := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if binary.LittleEndian.Uint32(header[0:]) != SnapshotMagic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(header[4:]); v != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	ct := CompressionType(header[6])

	block, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot payload: %w", err)
	}
	payload, err := decompressBlock(block, ct)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// compressBlock frames data with a block header and compresses it using the
// selected algorithm. If compression does not shrink the payload, or the
// algorithm is CompressionNone, the block is stored uncompressed with
// CompressedSize set to 0.
func compressBlock(data []byte, ct CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch ct {
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		compressed, err = compressZSTD(data)
	case CompressionNone:
	default:
		return nil, fmt.Errorf("unknown compression type %d", ct)
	}
	if err != nil {
		return nil, err
	}

	uncompressedSize, err := conv.IntToUint32(len(data))
	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || len(compressed) >= len(data) {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uncompressedSize)
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	compressedSize, err := conv.IntToUint32(len(compressed))
	if err != nil {
		return nil, err
	}
	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uncompressedSize)
	binary.LittleEndian.PutUint32(result[4:], compressedSize)
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

// decompressBlock reverses compressBlock.
func decompressBlock(data []byte, ct CompressionType) ([]byte, error) {
	if len(data) < blockHeaderSize {
		return nil, errors.New("snapshot block too small for header")
	}
	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint64(len(data)) < blockHeaderSize+uint64(uncompressedSize) {
			return nil, errors.New("snapshot block data truncated")
		}
		return data[blockHeaderSize : blockHeaderSize+int(uncompressedSize)], nil
	}
	if uint64(len(data)) < blockHeaderSize+uint64(compressedSize) {
		return nil, errors.New("snapshot block data truncated")
	}
	body := data[blockHeaderSize : blockHeaderSize+int(compressedSize)]

	switch ct {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != uncompressedSize {
			return nil, errors.New("snapshot decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(body, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != uncompressedSize {
			return nil, errors.New("snapshot decompressed size mismatch")
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compression type %d", ct)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return buf[:n], nil
}

func compressZSTD(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}
