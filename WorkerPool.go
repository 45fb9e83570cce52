package main

import (
	"context"
	"math/rand"
	"runtime"
	"time"
)

// nonceLaneSize is half of the uint32 nonce space (spec.md §4.C: the
// space is partitioned into two disjoint halves so that two worker
// goroutines searching the same job never retread each other's nonces).
const nonceLaneSize = uint64(1) << 31

// nonceLane is one worker's disjoint slice of the uint32 nonce space, with
// a random starting offset so that repeated runs against the same job (a
// reconnect, say) don't always begin at the same nonce.
type nonceLane struct {
	base    uint32
	current uint32
}

func newNonceLane(laneIndex int, rng *rand.Rand) *nonceLane {
	base := uint32(0)
	if laneIndex%2 == 1 {
		base = uint32(nonceLaneSize)
	}
	offset := uint32(rng.Uint64() % nonceLaneSize)
	return &nonceLane{base: base, current: base + offset}
}

// next returns the current nonce and advances, wrapping back to the lane's
// base once it reaches the half boundary rather than crossing into the
// other lane's territory.
func (l *nonceLane) next() uint32 {
	n := l.current
	if uint64(n-l.base)+1 >= nonceLaneSize {
		l.current = l.base
	} else {
		l.current = n + 1
	}
	return n
}

// WorkerPool runs the hashing goroutines that search a job's nonce space
// for a share, reading the active job from a JobCell and handing
// candidates off to the submitter via a channel (spec.md §4.C).
type WorkerPool struct {
	cell        *JobCell
	submissions chan<- EventSubmitShare
	stats       *Stats
	numWorkers  int
}

// NewWorkerPool builds a pool with numWorkers goroutines. numWorkers <= 0
// resolves to runtime.NumCPU(), capped at 2 since the reference hardware
// this design is modeled on only ever ran two hashing cores; beyond that
// there is no benefit shown in the original firmware's dual-core split,
// but nothing below stops a deployer from raising it via config.
func NewWorkerPool(cell *JobCell, submissions chan<- EventSubmitShare, stats *Stats, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
		if numWorkers > 2 {
			numWorkers = 2
		}
		if numWorkers < 1 {
			numWorkers = 1
		}
	}
	return &WorkerPool{cell: cell, submissions: submissions, stats: stats, numWorkers: numWorkers}
}

// Run blocks until ctx is cancelled, running numWorkers hashing goroutines.
func (p *WorkerPool) Run(ctx context.Context) {
	done := make(chan struct{}, p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go func(lane int) {
			p.workerLoop(ctx, lane)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < p.numWorkers; i++ {
		<-done
	}
}

func (p *WorkerPool) workerLoop(ctx context.Context, laneIndex int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(laneIndex)))

	var lane *nonceLane
	var job *JobTemplate
	var version uint64
	var hashesSinceYield uint64

	for {
		if ctx.Err() != nil {
			return
		}

		currentJob, currentVersion, ok := p.cell.Acquire()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(IdleLoopSleep):
			}
			continue
		}
		if job == nil || currentVersion != version {
			job = currentJob
			version = currentVersion
			lane = newNonceLane(laneIndex, rng)
		}

		for !p.cell.Stale(version) {
			if ctx.Err() != nil {
				return
			}

			nonce := lane.next()
			digest, earlyPass := MineDouble(job.HeaderBase, nonce)

			hashesSinceYield++
			if hashesSinceYield >= YieldEveryNHashes {
				p.stats.AddHashes(hashesSinceYield)
				hashesSinceYield = 0
				runtime.Gosched()
			}

			if !earlyPass {
				continue
			}

			if !HashMeetsTarget(digest, job.PoolTarget) {
				continue
			}

			p.handleCandidate(job, nonce, digest)
		}
	}
}

func (p *WorkerPool) handleCandidate(job *JobTemplate, nonce uint32, digest [32]byte) {
	var flags uint32
	if digest[31] == 0 && digest[30] == 0 && digest[29] == 0 && digest[28] == 0 {
		flags |= FlagTop32Zero
		p.stats.IncTop32ZeroMatch()
	}
	isBlock := HashMeetsTarget(digest, job.BlockTarget)
	if isBlock {
		flags |= FlagFullBlock
		p.stats.IncFullBlockFound()
	}

	diff := ShareDifficulty(digest)
	p.stats.UpdateBestDifficulty(diff)
	p.stats.IncShareSent()

	select {
	case p.submissions <- EventSubmitShare{
		JobID:       job.JobID,
		ExtraNonce2: job.ActiveExtraNonce2,
		Ntime:       job.NTime,
		Nonce:       nonce,
		VersionBits: job.Version,
		Flags:       flags,
		Difficulty:  diff,
	}:
	default:
		// Submission queue is saturated; drop rather than block the hot
		// loop. A share dropped here was going to be stale by the time
		// it reached the pool anyway.
	}
}
