package main

import (
	"crypto/sha256"
	"testing"
)

func TestToHardwareDigestPlacesMostSignificantWordLast(t *testing.T) {
	// SHA256("") standard digest, most significant word is e3b0c442.
	std := sha256.Sum256(nil)
	out := toHardwareDigest(std)

	if out[28] != std[3] || out[29] != std[2] || out[30] != std[1] || out[31] != std[0] {
		t.Errorf("expected digest[28:32] to be the byte-reversed first standard word, got %x", out[28:32])
	}
	if out[0] != std[31] || out[1] != std[30] || out[2] != std[29] || out[3] != std[28] {
		t.Errorf("expected digest[0:4] to be the byte-reversed last standard word, got %x", out[0:4])
	}
}

func TestMineDoubleEarlyPassMatchesTopBits(t *testing.T) {
	var header Header80
	for nonce := uint32(0); nonce < 1<<16; nonce++ {
		digest, earlyPass := MineDouble(header, nonce)
		want := digest[31] == 0 && digest[30] == 0
		if earlyPass != want {
			t.Fatalf("nonce %d: earlyPass=%v but digest[30:32]=%x", nonce, earlyPass, digest[30:32])
		}
	}
}

func TestMineDoubleNonceAffectsDigest(t *testing.T) {
	var header Header80
	d1, _ := MineDouble(header, 0)
	d2, _ := MineDouble(header, 1)
	if d1 == d2 {
		t.Errorf("expected different nonces to produce different digests")
	}
}
