package main

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// pendingSubmission is one outstanding mining.submit call, kept around
// until the pool's response arrives so the round-trip latency and the
// original share can be recovered by message id.
type pendingSubmission struct {
	id     uint32
	share  EventSubmitShare
	sentAt time.Time
}

// Submitter tracks in-flight share submissions and matches pool responses
// back to them by JSON-RPC id, the way the teacher's SessionIDManager
// tracked allocated session ids in a bitset -- except where the id
// manager rejects allocation once full, the submitter instead evicts the
// oldest outstanding submission (spec.md §4.E: a ~32-slot ring, overwrite
// the oldest on overflow rather than block the worker pool).
type Submitter struct {
	mu       sync.Mutex
	slots    [PendingSubmissionSlots]pendingSubmission
	occupied *bitset.BitSet
	fifo     []uint32 // slot indices in submission order, oldest first
	idToSlot map[uint32]int
	stats    *Stats
}

func NewSubmitter(stats *Stats) *Submitter {
	return &Submitter{
		occupied: bitset.New(PendingSubmissionSlots),
		fifo:     make([]uint32, 0, PendingSubmissionSlots),
		idToSlot: make(map[uint32]int, PendingSubmissionSlots),
		stats:    stats,
	}
}

// Register records share as pending under id, the JSON-RPC request id the
// caller already allocated from its own shared sequence (the same
// sequence used for every other outgoing message, per the original
// firmware's single getNextId counter). It evicts the oldest pending
// submission first if the ring is full.
func (s *Submitter) Register(id uint32, share EventSubmitShare) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.fifo) >= PendingSubmissionSlots {
		oldestSlot := s.fifo[0]
		s.fifo = s.fifo[1:]
		delete(s.idToSlot, s.slots[oldestSlot].id)
		s.occupied.Clear(uint(oldestSlot))
	}

	slot := s.freeSlotLocked()
	s.slots[slot] = pendingSubmission{id: id, share: share, sentAt: time.Now()}
	s.occupied.Set(uint(slot))
	s.idToSlot[id] = slot
	s.fifo = append(s.fifo, uint32(slot))
}

func (s *Submitter) freeSlotLocked() int {
	for i := 0; i < PendingSubmissionSlots; i++ {
		if !s.occupied.Test(uint(i)) {
			return i
		}
	}
	// Should be unreachable: Register evicts before this point whenever
	// the ring is full.
	return 0
}

// Resolve matches a pool response's "id" field (always a float64 after
// JSON decoding) back to a pending submission and removes it from the
// ring. ok is false if the id is unknown, e.g. a duplicate or late
// response for an already-evicted slot.
func (s *Submitter) Resolve(rawID interface{}) (share EventSubmitShare, latency time.Duration, ok bool) {
	id, isNum := toUint32ID(rawID)
	if !isNum {
		return EventSubmitShare{}, 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, found := s.idToSlot[id]
	if !found {
		return EventSubmitShare{}, 0, false
	}

	pending := s.slots[slot]
	delete(s.idToSlot, id)
	s.occupied.Clear(uint(slot))
	for i, v := range s.fifo {
		if v == uint32(slot) {
			s.fifo = append(s.fifo[:i], s.fifo[i+1:]...)
			break
		}
	}

	return pending.share, time.Since(pending.sentAt), true
}

// toUint32ID converts a decoded JSON-RPC id (float64 for a number,
// possibly a string for some non-conformant pools) to the uint32 we
// allocated it as.
func toUint32ID(raw interface{}) (uint32, bool) {
	switch v := raw.(type) {
	case float64:
		return uint32(v), true
	case int:
		return uint32(v), true
	default:
		return 0, false
	}
}
