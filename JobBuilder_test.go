package main

import (
	"encoding/hex"
	"testing"
)

func sampleNotifyParams() []interface{} {
	return []interface{}{
		"job1",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"01000000010000000000000000000000000000000000000000000000000000000000000000ffffffff0100",
		"ffffffff0100f2052a010000001976a914000000000000000000000000000000000000000088ac00000000",
		[]interface{}{},
		"00000020",
		"1d00ffff",
		"5f5e1000",
		true,
	}
}

func TestParseNotifyRoundTripsFields(t *testing.T) {
	extraNonce1, _ := hex.DecodeString("aabbccdd")
	job, err := ParseNotify(sampleNotifyParams(), extraNonce1, 4)
	if err != nil {
		t.Fatalf("ParseNotify returned an error: %v", err)
	}

	if job.JobID != "job1" {
		t.Errorf("expected job id %q, got %q", "job1", job.JobID)
	}
	if !job.CleanJobs {
		t.Errorf("expected clean_jobs true")
	}
	if job.NBits != 0x1d00ffff {
		t.Errorf("expected nbits 0x1d00ffff, got %x", job.NBits)
	}
	if job.NTime != 0x5f5e1000 {
		t.Errorf("expected ntime 0x5f5e1000, got %x", job.NTime)
	}
	if job.BlockTarget == nil || job.BlockTarget.IsZero() {
		t.Errorf("expected a non-zero block target")
	}
}

func TestParseNotifyRejectsShortParams(t *testing.T) {
	_, err := ParseNotify([]interface{}{"job1"}, nil, 4)
	if err == nil {
		t.Fatalf("expected an error for a truncated params array")
	}
}

func TestBuildCoinbaseAssemblesAllFourPieces(t *testing.T) {
	extraNonce1, _ := hex.DecodeString("aabbccdd")
	job, err := ParseNotify(sampleNotifyParams(), extraNonce1, 4)
	if err != nil {
		t.Fatalf("ParseNotify returned an error: %v", err)
	}

	coinbase, err := job.BuildCoinbase(0x11223344)
	if err != nil {
		t.Fatalf("BuildCoinbase returned an error: %v", err)
	}

	wantLen := len(job.Coinbase1) + len(extraNonce1) + 4 + len(job.Coinbase2)
	if len(coinbase) != wantLen {
		t.Errorf("expected coinbase length %d, got %d", wantLen, len(coinbase))
	}

	if string(coinbase[:len(job.Coinbase1)]) != string(job.Coinbase1) {
		t.Errorf("expected coinbase to start with coinbase1")
	}
	tail := coinbase[len(coinbase)-len(job.Coinbase2):]
	if string(tail) != string(job.Coinbase2) {
		t.Errorf("expected coinbase to end with coinbase2")
	}
}

func TestMerkleRootWithNoBranchesEqualsCoinbaseHash(t *testing.T) {
	coinbase := []byte("a fake coinbase transaction, just for hashing")
	cbHash := CoinbaseHash(coinbase)
	root := MerkleRoot(cbHash, nil)
	if root != cbHash {
		t.Errorf("expected the merkle root with zero branches to equal the coinbase hash")
	}
}

func TestJobCellPublishAcquireStale(t *testing.T) {
	var cell JobCell

	if _, _, ok := cell.Acquire(); ok {
		t.Fatalf("expected Acquire to fail before any job was published")
	}

	job1 := &JobTemplate{JobID: "job1"}
	v1 := cell.Publish(job1)

	got, version, ok := cell.Acquire()
	if !ok || got.JobID != "job1" || version != v1 {
		t.Fatalf("unexpected Acquire result after first publish: %+v, %d, %v", got, version, ok)
	}
	if cell.Stale(v1) {
		t.Errorf("expected version %d to be current, not stale", v1)
	}

	job2 := &JobTemplate{JobID: "job2"}
	cell.Publish(job2)

	if !cell.Stale(v1) {
		t.Errorf("expected version %d to be stale after publishing job2", v1)
	}
}
