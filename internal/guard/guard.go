// Package guard implements the sentinel regions flanking every tracked
// allocation.
//
// A fixed 8-byte pattern is stamped immediately before and immediately after
// the user-visible region, inside the padded underlying allocation:
//
//	┌──────────┬──────────────────────┬──────────┐
//	│  front   │     user region      │   back   │
//	│  8 bytes │     userSize bytes   │  8 bytes │
//	└──────────┴──────────────────────┴──────────┘
//
// A client write that crosses either boundary destroys the pattern and is
// detected the next time the allocation is verified (release or resize).
// Verification is byte-for-byte and never mutates memory.
package guard

import "bytes"

// Width is the sentinel width in bytes on each side of the user region.
const Width = 8

// pattern is deliberately not cryptographic. It only has to be unlikely to
// survive an accidental overrun, not an adversarial one.
var pattern = [Width]byte{0xDE, 0xAD, 0xC0, 0xDE, 0xDE, 0xAD, 0xC0, 0xDE}

// Pattern returns a copy of the sentinel pattern.
func Pattern() [Width]byte {
	return pattern
}

// Write stamps the front and back sentinels into region, which must span the
// full padded allocation (userSize + 2*Width bytes).
func Write(region []byte, userSize int) {
	copy(region[:Width], pattern[:])
	copy(region[Width+userSize:Width+userSize+Width], pattern[:])
}

// Check verifies both sentinels of region and reports each side separately.
// region must span the full padded allocation for userSize user bytes.
func Check(region []byte, userSize int) (frontOK, backOK bool) {
	frontOK = bytes.Equal(region[:Width], pattern[:])
	backOK = bytes.Equal(region[Width+userSize:Width+userSize+Width], pattern[:])
	return frontOK, backOK
}
