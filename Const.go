package main

import "time"

// ClientState is the stratum client's protocol state machine position (spec.md §4.D).
type ClientState uint8

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateSubscribing
	StateAuthorizing
	StateMining
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateAuthorizing:
		return "authorizing"
	case StateMining:
		return "mining"
	default:
		return "unknown"
	}
}

const (
	MinerUserAgent = "sparkminer-go/1.0.0"

	// MaxLineLength bounds a single stratum wire line (spec.md §4.D framing).
	MaxLineLength = 4096

	// MaxCoinbaseLength is the dynamic-growth cap for the assembled coinbase
	// transaction (spec.md §9 open question: grow dynamically within a sane cap).
	MaxCoinbaseLength = 4096

	// PendingSubmissionSlots is the capacity of the submitter's response-matching ring.
	PendingSubmissionSlots = 32

	// SubmissionQueueCapacity is the bounded worker -> stratum-task submission queue depth.
	SubmissionQueueCapacity = 16

	// HandshakeMaxAttempts bounds waitForResponseById's interleaved-line tolerance.
	HandshakeMaxAttempts = 10

	// YieldEveryNHashes is the worker's cooperative-yield cadence.
	YieldEveryNHashes = 256 * 1024

	TCPConnectTimeout     = 10 * time.Second
	LineReadTimeout       = 5 * time.Second
	HandshakeReadTimeout  = 5 * time.Second
	KeepaliveIdleInterval = 30 * time.Second
	InactivityTimeout     = 700 * time.Second
	FailoverThreshold     = 30 * time.Second
	BackupProbeInterval   = 120 * time.Second
	IdleLoopSleep         = 100 * time.Millisecond
	ReconnectSleep        = 10 * time.Second

	// MaxBlockTargetBits is the genesis-era easiest nBits (spec.md §8 boundary test).
	MaxBlockTargetBits uint32 = 0x1d00ffff
)

// Submission flag bits (spec.md §3, §4.C).
const (
	FlagTop32Zero uint32 = 1 << iota
	FlagFullBlock
)
