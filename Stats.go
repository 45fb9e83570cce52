package main

import "sync/atomic"

// Stats holds the miner's running counters. Every field is updated with
// atomic operations since the worker pool, the submitter, and the stratum
// task all touch it concurrently; StatsView takes a consistent-enough
// snapshot for periodic logging without taking a lock.
type Stats struct {
	hashesAttempted  uint64
	sharesSent       uint64
	sharesAccepted   uint64
	sharesRejected   uint64
	templatesSeen    uint64
	fullBlocksFound  uint64
	top32ZeroMatches uint64

	bestDifficultyBits uint64 // float64 bits, via math.Float64bits
	lastLatencyMs      int64
	emaLatencyMs       int64 // fixed-point, milliseconds * 1000
}

// StatsView is a point-in-time, non-atomic snapshot for display/logging.
type StatsView struct {
	HashesAttempted  uint64
	SharesSent       uint64
	SharesAccepted   uint64
	SharesRejected   uint64
	TemplatesSeen    uint64
	FullBlocksFound  uint64
	Top32ZeroMatches uint64
	BestDifficulty   float64
	LastLatencyMs    int64
	EmaLatencyMs     float64
}

func (s *Stats) AddHashes(n uint64) {
	atomic.AddUint64(&s.hashesAttempted, n)
}

func (s *Stats) IncTemplatesSeen() {
	atomic.AddUint64(&s.templatesSeen, 1)
}

func (s *Stats) IncShareSent() {
	atomic.AddUint64(&s.sharesSent, 1)
}

func (s *Stats) IncFullBlockFound() {
	atomic.AddUint64(&s.fullBlocksFound, 1)
}

func (s *Stats) IncTop32ZeroMatch() {
	atomic.AddUint64(&s.top32ZeroMatches, 1)
}

// RecordShareResult updates accept/reject counters and, on acceptance,
// the latency EMA (ema = ema==0 ? latency : (ema*9+latency)/10, spec.md
// §4.E) used by the periodic stats log to show pool responsiveness.
func (s *Stats) RecordShareResult(status ShareStatus, latencyMs int64) {
	if status.IsAccepted() {
		atomic.AddUint64(&s.sharesAccepted, 1)
	} else {
		atomic.AddUint64(&s.sharesRejected, 1)
	}

	atomic.StoreInt64(&s.lastLatencyMs, latencyMs)

	for {
		old := atomic.LoadInt64(&s.emaLatencyMs)
		var next int64
		if old == 0 {
			next = latencyMs * 1000
		} else {
			next = (old*9 + latencyMs*1000) / 10
		}
		if atomic.CompareAndSwapInt64(&s.emaLatencyMs, old, next) {
			break
		}
	}
}

// UpdateBestDifficulty raises the recorded best share difficulty if d
// exceeds it. Monotonic: never decreases across the miner's lifetime.
func (s *Stats) UpdateBestDifficulty(d float64) {
	for {
		old := loadFloat64(&s.bestDifficultyBits)
		if d <= old {
			return
		}
		if storeFloat64CAS(&s.bestDifficultyBits, old, d) {
			return
		}
	}
}

func (s *Stats) Snapshot() StatsView {
	return StatsView{
		HashesAttempted:  atomic.LoadUint64(&s.hashesAttempted),
		SharesSent:       atomic.LoadUint64(&s.sharesSent),
		SharesAccepted:   atomic.LoadUint64(&s.sharesAccepted),
		SharesRejected:   atomic.LoadUint64(&s.sharesRejected),
		TemplatesSeen:    atomic.LoadUint64(&s.templatesSeen),
		FullBlocksFound:  atomic.LoadUint64(&s.fullBlocksFound),
		Top32ZeroMatches: atomic.LoadUint64(&s.top32ZeroMatches),
		BestDifficulty:   loadFloat64(&s.bestDifficultyBits),
		LastLatencyMs:    atomic.LoadInt64(&s.lastLatencyMs),
		EmaLatencyMs:     float64(atomic.LoadInt64(&s.emaLatencyMs)) / 1000,
	}
}
