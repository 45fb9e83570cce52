package main

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
)

func TestBitsToTargetKnownDifficulty1(t *testing.T) {
	target := BitsToTarget(MaxBlockTargetBits)
	if target.IsZero() {
		t.Fatalf("expected a non-zero target for difficulty-1 nbits")
	}

	expected, _ := uint256.FromHex("0xffff0000000000000000000000000000000000000000000000000000")
	if !target.Eq(expected) {
		t.Errorf("difficulty-1 target mismatch:\n  got  %x\n  want %x", target.Bytes32(), expected.Bytes32())
	}
}

func TestPoolTargetFromDifficultyOne(t *testing.T) {
	blockTarget := BitsToTarget(MaxBlockTargetBits)
	poolTarget := PoolTargetFromDifficulty(blockTarget, 1)
	if !poolTarget.Eq(blockTarget) {
		t.Errorf("difficulty 1 should leave the target unchanged:\n  got  %x\n  want %x", poolTarget.Bytes32(), blockTarget.Bytes32())
	}
}

func TestPoolTargetFromDifficultyHalvesAtDoubleDifficulty(t *testing.T) {
	blockTarget := BitsToTarget(MaxBlockTargetBits)
	poolTarget := PoolTargetFromDifficulty(blockTarget, 2)

	want := new(uint256.Int).Rsh(blockTarget, 1)
	if !poolTarget.Eq(want) {
		t.Errorf("difficulty 2 should roughly halve the target:\n  got  %x\n  want %x", poolTarget.Bytes32(), want.Bytes32())
	}
}

func TestPoolTargetFromDifficultyRejectsNonPositive(t *testing.T) {
	blockTarget := BitsToTarget(MaxBlockTargetBits)
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		got := PoolTargetFromDifficulty(blockTarget, d)
		if !got.Eq(blockTarget) {
			t.Errorf("difficulty %v should fall back to difficulty 1, got %x want %x", d, got.Bytes32(), blockTarget.Bytes32())
		}
	}
}

func TestHashMeetsTargetBoundary(t *testing.T) {
	target := uint256.NewInt(100)

	// digest[0] carries the number's least significant byte in the
	// hardware digest's word order; digest[31] carries the most
	// significant byte, so leaving it zero keeps the value small.
	var belowDigest [32]byte
	belowDigest[0] = 50
	if !HashMeetsTarget(belowDigest, target) {
		t.Errorf("expected a small digest to meet the target")
	}

	var aboveDigest [32]byte
	aboveDigest[31] = 1 // any nonzero most significant byte dwarfs target=100
	if HashMeetsTarget(aboveDigest, target) {
		t.Errorf("expected a large digest to miss the target")
	}
}

func TestShareDifficultyOfMaxTargetIsOne(t *testing.T) {
	maxTargetBytes := uint256.MustFromHex("0xffff0000000000000000000000000000000000000000000000000000").Bytes32()
	var digest [32]byte
	for i := 0; i < 32; i++ {
		digest[i] = maxTargetBytes[31-i]
	}
	diff := ShareDifficulty(digest)
	if diff < 0.99 || diff > 1.01 {
		t.Errorf("expected difficulty ~1.0 for the difficulty-1 target digest, got %v", diff)
	}
}
