package main

import "testing"

// TestUint32ToHexRoundTrips covers spec.md §8.3: every uint32 nonce/ntime
// value must survive an encode/decode round trip as exactly 8 hex digits.
func TestUint32ToHexRoundTrips(t *testing.T) {
	cases := []uint32{0, 1, 0xdeadbeef, 0xffffffff, 0x00010203}
	for _, want := range cases {
		hexStr := Uint32ToHex(want)
		if len(hexStr) != 8 {
			t.Errorf("Uint32ToHex(%d) = %q, want 8 hex digits", want, hexStr)
		}
		got, err := HexToUint32(hexStr)
		if err != nil {
			t.Fatalf("HexToUint32(%q) failed: %v", hexStr, err)
		}
		if got != want {
			t.Errorf("round trip mismatch: %d -> %q -> %d", want, hexStr, got)
		}
	}
}

func TestHexToUint32RejectsWrongLength(t *testing.T) {
	if _, err := HexToUint32("aabb"); err == nil {
		t.Errorf("expected an error for a 2-byte hex string")
	}
	if _, err := HexToUint32("aabbccddee"); err == nil {
		t.Errorf("expected an error for a 5-byte hex string")
	}
}

// TestEncodeExtraNonce2RoundTrips covers spec.md §8.4: the extranonce2
// encoding must round-trip for every size the pool can advertise during
// mining.subscribe (typically 2-8 bytes).
func TestEncodeExtraNonce2RoundTrips(t *testing.T) {
	for size := 1; size <= 8; size++ {
		var maxForSize uint64 = 0
		if size >= 8 {
			maxForSize = 0xffffffffffffffff
		} else {
			maxForSize = (uint64(1) << (8 * size)) - 1
		}
		for _, want := range []uint64{0, 1, maxForSize} {
			hexStr := EncodeExtraNonce2(want, size)
			if len(hexStr) != size*2 {
				t.Errorf("size %d: EncodeExtraNonce2(%d) = %q, want %d hex digits", size, want, hexStr, size*2)
			}
			got, err := DecodeExtraNonce2(hexStr, size)
			if err != nil {
				t.Fatalf("size %d: DecodeExtraNonce2(%q) failed: %v", size, hexStr, err)
			}
			if got != want {
				t.Errorf("size %d: round trip mismatch: %d -> %q -> %d", size, want, hexStr, got)
			}
		}
	}
}

func TestDecodeExtraNonce2RejectsWrongLength(t *testing.T) {
	if _, err := DecodeExtraNonce2("aabb", 4); err == nil {
		t.Errorf("expected an error when decoded length does not match size")
	}
}
