package main

import (
	"math"
	"math/big"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/holiman/uint256"
)

// maxTargetFloat is 2^256 expressed relative to difficulty-1, the same
// constant the original firmware hardcoded for getDifficulty.
const maxTargetFloat = 26959535291011309493156476344723991336010898738574164086137773096960.0

// BitsToTarget expands a compact nBits field (spec.md §3) into the full
// 256-bit block target. blockchain.CompactToBig does the exponent/mantissa
// decode; we only need to carry its *big.Int magnitude into a uint256.Int,
// since all our target arithmetic and comparisons live there.
func BitsToTarget(nBits uint32) *uint256.Int {
	big := blockchain.CompactToBig(nBits)
	t, overflow := uint256.FromBig(big)
	if overflow {
		return uint256.NewInt(0).Not(uint256.NewInt(0)) // clamp to max uint256
	}
	return t
}

// PoolTargetFromDifficulty derives the target a share must clear to be
// accepted by the pool: blockTarget / difficulty (spec.md §4.B step 5).
// difficulty <= 0 is treated as difficulty 1 (the most permissive sane
// value), matching the firmware's guard against a not-yet-set pool
// difficulty.
//
// The division walks the target's four 64-bit limbs from most to least
// significant, carrying the float remainder forward the same way the
// original divide_256bit_by_double does; this avoids ever materialising
// an intermediate value wider than 256 bits; uint256 alone can't divide
// by a non-integer divisor directly.
func PoolTargetFromDifficulty(blockTarget *uint256.Int, difficulty float64) *uint256.Int {
	if difficulty <= 0 || math.IsNaN(difficulty) || math.IsInf(difficulty, 0) {
		difficulty = 1
	}

	limbs := blockTarget.Clone() // uint256.Int is [4]uint64, word 3 most significant
	var result [4]uint64
	remainder := 0.0

	for i := 3; i >= 0; i-- {
		val := float64(limbs[i]) + remainder*18446744073709551616.0
		res := val / difficulty
		if res >= 18446744073709551615.0 {
			result[i] = math.MaxUint64
		} else {
			result[i] = uint64(res)
		}
		remainder = val - float64(result[i])*difficulty
	}

	return &uint256.Int{result[0], result[1], result[2], result[3]}
}

// HashMeetsTarget reports whether digest, in the hardware-SHA readout byte
// order described in the engine (MSB word ending at digest[28:32], each
// word little-endian internally), is numerically <= target.
func HashMeetsTarget(digest [32]byte, target *uint256.Int) bool {
	h := digestToUint256(digest)
	return h.Cmp(target) <= 0
}

// ShareDifficulty converts a digest into a difficulty-1-relative value,
// the number reported alongside an accepted share (spec.md §4.E). NaN and
// Inf (possible only for an all-zero digest, astronomically unlikely)
// collapse to 0, matching the original firmware's guard.
func ShareDifficulty(digest [32]byte) float64 {
	h := digestToUint256(digest)
	hf := new(big.Float).SetInt(h.ToBig())
	diff, _ := new(big.Float).Quo(big.NewFloat(maxTargetFloat), hf).Float64()
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return 0
	}
	return diff
}

func digestToUint256(digest [32]byte) *uint256.Int {
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = digest[31-i]
	}
	return new(uint256.Int).SetBytes32(be[:])
}
