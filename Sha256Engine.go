package main

import "encoding/binary"

// HeaderSize is the length of a serialized Bitcoin block header.
const HeaderSize = 80

// Header80 is a block header with its nonce field still to be filled in by
// the miner loop. Every other field (version, prev_hash, merkle_root,
// ntime, nbits) is fixed for the life of a job (spec.md §3).
type Header80 [HeaderSize]byte

// SetNonce writes nonce into the header's last four bytes, little-endian,
// matching Bitcoin's block header serialization.
func (h *Header80) SetNonce(nonce uint32) {
	binary.LittleEndian.PutUint32(h[76:80], nonce)
}

// MineDouble computes the double-SHA256 of header with nonce substituted
// in, returning the digest in the hardware-SHA readout byte order (word
// order reversed, each word byte-swapped, so the hash's most significant
// 32-bit word ends at digest[28:32]) together with the 16-bit early-reject
// fast path result.
//
// earlyPass mirrors the original firmware's ll_read_digest_if gate: it is
// true only when the top two bytes of the most significant word
// (digest[31], digest[30]) are both zero, i.e. the full hash's top 16 bits
// are zero. Callers should skip the full target comparison whenever
// earlyPass is false -- at real network difficulty that is true for all
// but roughly 1 in 65536 nonces tried, and computing it costs nothing
// extra since it falls out of the digest we already have.
func MineDouble(header Header80, nonce uint32) (digest [32]byte, earlyPass bool) {
	header.SetNonce(nonce)
	first := sha256Sum(header[:])
	second := sha256Sum(first[:])
	digest = toHardwareDigest(second)
	earlyPass = digest[31] == 0 && digest[30] == 0
	return digest, earlyPass
}

// toHardwareDigest reorders a standard big-endian SHA-256 digest into the
// byte layout the rest of the miner expects: word order reversed (the
// digest's first 32-bit word H0 becomes the last output word) and each
// word's 4 bytes reversed in place.
func toHardwareDigest(std [32]byte) [32]byte {
	var out [32]byte
	for j := 0; j < 8; j++ {
		i := 7 - j
		out[4*j+0] = std[4*i+3]
		out[4*j+1] = std[4*i+2]
		out[4*j+2] = std[4*i+1]
		out[4*j+3] = std[4*i+0]
	}
	return out
}
