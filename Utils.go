package main

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync/atomic"
)

// loadFloat64 and storeFloat64CAS let Stats keep a float64 best-difficulty
// value behind the same atomic primitives used for its integer counters,
// since sync/atomic has no native float64 compare-and-swap.
func loadFloat64(addr *uint64) float64 {
	return math.Float64frombits(atomic.LoadUint64(addr))
}

func storeFloat64CAS(addr *uint64, old, new float64) bool {
	return atomic.CompareAndSwapUint64(addr, math.Float64bits(old), math.Float64bits(new))
}

// Uint32ToHex renders num as exactly 8 lowercase hex digits, big-endian
// (value-as-hex), the wire format spec.md §8.3 requires for nonce and ntime.
func Uint32ToHex(num uint32) string {
	bytesBuffer := bytes.NewBuffer(make([]byte, 0, 4))
	binary.Write(bytesBuffer, binary.BigEndian, num)
	return hex.EncodeToString(bytesBuffer.Bytes())
}

// HexToUint32 parses exactly 8 lowercase hex digits as a big-endian uint32,
// the inverse of Uint32ToHex (round-trip property, spec.md §8.3).
func HexToUint32(s string) (uint32, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("expected 4 bytes, got %d", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

// EncodeExtraNonce2 renders en2 as exactly 2*size lowercase hex digits,
// big-endian, per spec.md §8.4. The caller guarantees size <= 8.
func EncodeExtraNonce2(en2 uint64, size int) string {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, en2)
	return hex.EncodeToString(buf[8-size:])
}

// DecodeExtraNonce2 is the inverse of EncodeExtraNonce2.
func DecodeExtraNonce2(s string, size int) (uint64, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	if len(b) != size {
		return 0, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	buf := make([]byte, 8)
	copy(buf[8-size:], b)
	return binary.BigEndian.Uint64(buf), nil
}

// swapWordBytes reverses the byte order within each 4-byte word of buf,
// the "byte-swap each 4-byte word" transform spec.md §3 requires for
// prev_hash when materialising it into block-header byte order.
func swapWordBytes(buf []byte) {
	for i := 0; i+4 <= len(buf); i += 4 {
		buf[i], buf[i+3] = buf[i+3], buf[i]
		buf[i+1], buf[i+2] = buf[i+2], buf[i+1]
	}
}

// hexDecodeInto decodes src into a newly allocated byte slice, erroring if
// the decoded length does not equal wantLen (wantLen < 0 means "any length").
func hexDecodeInto(src string, wantLen int) ([]byte, error) {
	b, err := hex.DecodeString(src)
	if err != nil {
		return nil, err
	}
	if wantLen >= 0 && len(b) != wantLen {
		return nil, fmt.Errorf("expected %d bytes, got %d", wantLen, len(b))
	}
	return b, nil
}
