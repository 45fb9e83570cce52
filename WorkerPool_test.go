package main

import (
	"math/rand"
	"testing"
)

func TestNonceLaneStaysWithinItsHalf(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	lane0 := newNonceLane(0, rng)
	for i := 0; i < 1000; i++ {
		n := lane0.next()
		if uint64(n) >= nonceLaneSize {
			t.Fatalf("lane 0 produced nonce %d outside its half [0, %d)", n, nonceLaneSize)
		}
	}

	lane1 := newNonceLane(1, rng)
	for i := 0; i < 1000; i++ {
		n := lane1.next()
		if uint64(n) < nonceLaneSize {
			t.Fatalf("lane 1 produced nonce %d outside its half [%d, 2^32)", n, nonceLaneSize)
		}
	}
}

func TestNonceLaneWrapsAtHalfBoundary(t *testing.T) {
	lane := &nonceLane{base: 0, current: uint32(nonceLaneSize - 1)}
	n := lane.next()
	if n != uint32(nonceLaneSize-1) {
		t.Fatalf("expected the last value before wrap to be returned, got %d", n)
	}
	if lane.current != 0 {
		t.Fatalf("expected the lane to wrap back to its base, got %d", lane.current)
	}
}

func TestHandleCandidatePublishesSubmission(t *testing.T) {
	submissions := make(chan EventSubmitShare, 1)
	pool := &WorkerPool{submissions: submissions, stats: &Stats{}}

	job := &JobTemplate{
		JobID:       "job1",
		BlockTarget: BitsToTarget(MaxBlockTargetBits),
	}
	job.PoolTarget = BitsToTarget(MaxBlockTargetBits)

	var digest [32]byte // all zero, trivially meets any target
	pool.handleCandidate(job, 7, digest)

	select {
	case got := <-submissions:
		if got.JobID != "job1" || got.Nonce != 7 {
			t.Errorf("unexpected submitted share: %+v", got)
		}
	default:
		t.Fatalf("expected handleCandidate to enqueue a submission")
	}

	if pool.stats.Snapshot().FullBlocksFound != 1 {
		t.Errorf("expected the all-zero digest to also count as a full block match")
	}
}

func TestHandleCandidateDropsWhenQueueFull(t *testing.T) {
	submissions := make(chan EventSubmitShare) // unbuffered: always full for a non-blocking send
	pool := &WorkerPool{submissions: submissions, stats: &Stats{}}

	job := &JobTemplate{
		JobID:       "job1",
		BlockTarget: BitsToTarget(MaxBlockTargetBits),
		PoolTarget:  BitsToTarget(MaxBlockTargetBits),
	}

	var digest [32]byte
	pool.handleCandidate(job, 1, digest) // must not block
}
