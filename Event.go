package main

// Events exchanged between the stratum client's connection goroutine, the
// worker pool, and the submitter. Each is a plain struct pushed through a
// buffered channel, the same lightweight event-queue pattern the teacher
// used for its up-session coordination.

// EventNotify carries a freshly parsed mining.notify job template.
type EventNotify struct {
	Job *JobTemplate
}

// EventSetDifficulty carries a new pool difficulty to apply to the
// currently active job.
type EventSetDifficulty struct {
	Difficulty float64
}

// EventConnectionLost signals that the upstream socket died or the
// inactivity timeout fired; the stratum task should reconnect.
type EventConnectionLost struct {
	Err error
}

// EventSubmitShare is handed from a worker goroutine to the submitter when
// a candidate nonce clears the pool target.
type EventSubmitShare struct {
	JobID       string
	ExtraNonce2 uint64
	Ntime       uint32
	Nonce       uint32
	VersionBits uint32
	Flags       uint32
	Difficulty  float64
}

// EventShareResult is handed back from the submitter once a pool responds
// (or times out) for a previously submitted share.
type EventShareResult struct {
	Status    ShareStatus
	LatencyMs int64
	PoolErr   *PoolError
}
