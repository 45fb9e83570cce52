package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/holiman/uint256"
)

// JobTemplate is one mining.notify's worth of parsed, ready-to-hash
// material. It is immutable once built; a new notification produces a new
// JobTemplate rather than mutating this one, so workers holding a pointer
// to it never observe a half-updated job (spec.md §4.B/§6 job-version
// concurrency model).
type JobTemplate struct {
	JobID     string
	Version   uint32
	PrevHash  [32]byte // already word-swapped into block-header order
	Coinbase1 []byte
	Coinbase2 []byte
	Branches  [][32]byte
	NTime     uint32
	NBits     uint32
	CleanJobs bool

	ExtraNonce1     []byte
	ExtraNonce2Size int

	BlockTarget *uint256.Int
	PoolTarget  *uint256.Int

	// ActiveExtraNonce2 and HeaderBase are filled in once by Activate,
	// right before the job is published. Every worker nonce search shares
	// this single header; only extranonce2 determines the coinbase and
	// therefore the merkle root, so it only needs computing once per job
	// rather than once per hash attempt (spec.md §4.B/§4.C).
	ActiveExtraNonce2 uint64
	HeaderBase        Header80

	// Version is a monotonically increasing sequence number assigned by
	// the job cell on publish, not to be confused with the block header's
	// Version field above. Workers compare this against the cell's
	// current value to detect that their in-flight nonce range is stale.
	version uint64
}

// Activate picks a random extranonce2, builds the job's header (coinbase,
// merkle root included), and records both on the template. Call this once
// after ParseNotify and SetPoolDifficulty, before publishing to a JobCell.
func (j *JobTemplate) Activate(randomUint64 func() uint64) error {
	en2 := randomUint64()
	if j.ExtraNonce2Size < 8 {
		en2 &= (uint64(1) << (8 * uint(j.ExtraNonce2Size))) - 1
	}
	header, err := j.Header(en2)
	if err != nil {
		return err
	}
	j.ActiveExtraNonce2 = en2
	j.HeaderBase = header
	return nil
}

// ParseNotify decodes a mining.notify's nine positional params (spec.md §3)
// into a JobTemplate. extraNonce1 and extraNonce2Size come from the
// subscribe response and are fixed for the life of the connection.
func ParseNotify(params []interface{}, extraNonce1 []byte, extraNonce2Size int) (*JobTemplate, error) {
	if len(params) < 9 {
		return nil, fmt.Errorf("%w: got %d fields, want 9", ErrNotifyMalformed, len(params))
	}

	jobID, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: job id is not a string", ErrNotifyMalformed)
	}
	prevHashHex, ok := params[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: prevhash is not a string", ErrNotifyMalformed)
	}
	coinbase1Hex, ok := params[2].(string)
	if !ok {
		return nil, fmt.Errorf("%w: coinbase1 is not a string", ErrNotifyMalformed)
	}
	coinbase2Hex, ok := params[3].(string)
	if !ok {
		return nil, fmt.Errorf("%w: coinbase2 is not a string", ErrNotifyMalformed)
	}
	branchesRaw, ok := params[4].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: merkle_branch is not an array", ErrNotifyMalformed)
	}
	versionHex, ok := params[5].(string)
	if !ok {
		return nil, fmt.Errorf("%w: version is not a string", ErrNotifyMalformed)
	}
	nbitsHex, ok := params[6].(string)
	if !ok {
		return nil, fmt.Errorf("%w: nbits is not a string", ErrNotifyMalformed)
	}
	ntimeHex, ok := params[7].(string)
	if !ok {
		return nil, fmt.Errorf("%w: ntime is not a string", ErrNotifyMalformed)
	}
	cleanJobs, _ := params[8].(bool)

	prevHashBytes, err := hexDecodeInto(prevHashHex, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: prevhash: %v", ErrNotifyMalformed, err)
	}
	swapWordBytes(prevHashBytes)

	coinbase1, err := hexDecodeInto(coinbase1Hex, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: coinbase1: %v", ErrNotifyMalformed, err)
	}
	coinbase2, err := hexDecodeInto(coinbase2Hex, -1)
	if err != nil {
		return nil, fmt.Errorf("%w: coinbase2: %v", ErrNotifyMalformed, err)
	}

	branches := make([][32]byte, 0, len(branchesRaw))
	for i, b := range branchesRaw {
		s, ok := b.(string)
		if !ok {
			return nil, fmt.Errorf("%w: merkle_branch[%d] is not a string", ErrNotifyMalformed, i)
		}
		decoded, err := hexDecodeInto(s, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: merkle_branch[%d]: %v", ErrNotifyMalformed, i, err)
		}
		var branch [32]byte
		copy(branch[:], decoded)
		branches = append(branches, branch)
	}

	version, err := HexToUint32(versionHex)
	if err != nil {
		return nil, fmt.Errorf("%w: version: %v", ErrNotifyMalformed, err)
	}
	nbits, err := HexToUint32(nbitsHex)
	if err != nil {
		return nil, fmt.Errorf("%w: nbits: %v", ErrNotifyMalformed, err)
	}
	ntime, err := HexToUint32(ntimeHex)
	if err != nil {
		return nil, fmt.Errorf("%w: ntime: %v", ErrNotifyMalformed, err)
	}

	job := &JobTemplate{
		JobID:           jobID,
		Version:         version,
		Coinbase1:       coinbase1,
		Coinbase2:       coinbase2,
		Branches:        branches,
		NTime:           ntime,
		NBits:           nbits,
		CleanJobs:       cleanJobs,
		ExtraNonce1:     extraNonce1,
		ExtraNonce2Size: extraNonce2Size,
		BlockTarget:     BitsToTarget(nbits),
	}
	copy(job.PrevHash[:], prevHashBytes)
	return job, nil
}

// SetPoolDifficulty derives the job's pool target from its fixed block
// target and the given pool difficulty (spec.md §4.B step 5).
func (j *JobTemplate) SetPoolDifficulty(difficulty float64) {
	j.PoolTarget = PoolTargetFromDifficulty(j.BlockTarget, difficulty)
}

// BuildCoinbase assembles coinbase1 ∥ extranonce1 ∥ extranonce2 ∥
// coinbase2 (spec.md §3). It errors if the result would exceed
// MaxCoinbaseLength rather than growing unbounded (spec.md §9).
func (j *JobTemplate) BuildCoinbase(extraNonce2 uint64) ([]byte, error) {
	en2Hex := EncodeExtraNonce2(extraNonce2, j.ExtraNonce2Size)
	en2, err := hexDecodeInto(en2Hex, j.ExtraNonce2Size)
	if err != nil {
		return nil, err
	}

	total := len(j.Coinbase1) + len(j.ExtraNonce1) + len(en2) + len(j.Coinbase2)
	if total > MaxCoinbaseLength {
		return nil, ErrCoinbaseTooLarge
	}

	buf := make([]byte, 0, total)
	buf = append(buf, j.Coinbase1...)
	buf = append(buf, j.ExtraNonce1...)
	buf = append(buf, en2...)
	buf = append(buf, j.Coinbase2...)
	return buf, nil
}

// CoinbaseHash returns the double-SHA256 of coinbase, not reversed --
// NerdMiner-derived firmware this miner is modeled on explicitly does not
// reverse it, and spec.md §9's open question on Merkle-branch direction is
// resolved in favor of that convention (see DESIGN.md).
func CoinbaseHash(coinbase []byte) [32]byte {
	first := sha256Sum(coinbase)
	return sha256Sum(first[:])
}

// MerkleRoot folds coinbaseHash against the notify's branch list. Branches
// and intermediate hashes are used exactly as received, without byte
// reversal, matching the original firmware and resolving spec.md §9's open
// question.
func MerkleRoot(coinbaseHash [32]byte, branches [][32]byte) [32]byte {
	pair := coinbaseHash
	for _, branch := range branches {
		var buf [64]byte
		copy(buf[:32], pair[:])
		copy(buf[32:], branch[:])
		first := sha256Sum(buf[:])
		pair = sha256Sum(first[:])
	}
	return pair
}

// Header builds the 80-byte block header for a given extranonce2 and
// returns it alongside any coinbase-assembly error.
func (j *JobTemplate) Header(extraNonce2 uint64) (Header80, error) {
	var h Header80

	coinbase, err := j.BuildCoinbase(extraNonce2)
	if err != nil {
		return h, err
	}
	cbHash := CoinbaseHash(coinbase)
	root := MerkleRoot(cbHash, j.Branches)

	binary.LittleEndian.PutUint32(h[0:4], j.Version)
	copy(h[4:36], j.PrevHash[:])
	copy(h[36:68], root[:])
	binary.LittleEndian.PutUint32(h[68:72], j.NTime)
	binary.LittleEndian.PutUint32(h[72:76], j.NBits)
	// h[76:80] (nonce) is left zero; MineDouble fills it in per attempt.
	return h, nil
}

// JobCell holds the single currently-active job, published by the stratum
// task and read by every worker goroutine. Readers use Acquire/version to
// notice a swap mid-search and abandon their nonce range rather than
// finish hashing against a superseded template (spec.md §4.C/§6).
type JobCell struct {
	current atomic.Value // *JobTemplate
	version uint64
}

var errNoActiveJob = errors.New("no active job")

// Publish installs job as the current job, stamping it with the next
// version number, and returns that version.
func (c *JobCell) Publish(job *JobTemplate) uint64 {
	v := atomic.AddUint64(&c.version, 1)
	job.version = v
	c.current.Store(job)
	return v
}

// Acquire returns the current job and its version. ok is false only
// before the first job has ever been published.
func (c *JobCell) Acquire() (job *JobTemplate, version uint64, ok bool) {
	v := c.current.Load()
	if v == nil {
		return nil, 0, false
	}
	j := v.(*JobTemplate)
	return j, j.version, true
}

// Stale reports whether version no longer matches the cell's current job,
// i.e. a newer mining.notify has since been published.
func (c *JobCell) Stale(version uint64) bool {
	return atomic.LoadUint64(&c.version) != version
}
