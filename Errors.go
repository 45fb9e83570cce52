package main

import "errors"

// PoolError mirrors the [code, message] pair a pool sends in a JSON-RPC
// error field, preserved for logging per spec.md §7 ("preserve reason string").
type PoolError struct {
	Code    int
	Message string
}

func (err *PoolError) Error() string {
	if err == nil {
		return ""
	}
	return err.Message
}

// NewPoolErrorFromArray decodes the [code, message, ...] array a stratum
// server sends as the "error" field of a JSON-RPC 1.0 response.
func NewPoolErrorFromArray(v interface{}) *PoolError {
	arr, ok := v.([]interface{})
	if !ok || len(arr) < 2 {
		return nil
	}
	pe := new(PoolError)
	if code, ok := arr[0].(float64); ok {
		pe.Code = int(code)
	}
	if msg, ok := arr[1].(string); ok {
		pe.Message = msg
	}
	return pe
}

var (
	// ErrSubmissionSlotsFull is returned when the pending-submission ring is saturated.
	ErrSubmissionSlotsFull = errors.New("pending submission ring is full")
	// ErrSubscribeFailed covers a malformed or errored mining.subscribe response.
	ErrSubscribeFailed = errors.New("subscribe failed")
	// ErrAuthorizeFailed covers a false or errored mining.authorize response.
	ErrAuthorizeFailed = errors.New("authorize failed")
	// ErrHandshakeTimeout means waitForResponseById exhausted its attempts or deadline.
	ErrHandshakeTimeout = errors.New("handshake response timeout")
	// ErrLineTooLong means an incoming line exceeded MaxLineLength and was discarded.
	ErrLineTooLong = errors.New("stratum line exceeded max length")
	// ErrConnectionClosed means the upstream socket was closed or reset.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrNoWallet means the configuration has no wallet address set yet.
	ErrNoWallet = errors.New("no wallet configured")
	// ErrInvalidWallet means the configured wallet address failed decoding.
	ErrInvalidWallet = errors.New("invalid wallet address")
	// ErrNotifyMalformed means a mining.notify message was missing required fields.
	ErrNotifyMalformed = errors.New("malformed mining.notify")
	// ErrCoinbaseTooLarge means the assembled coinbase exceeded MaxCoinbaseLength.
	ErrCoinbaseTooLarge = errors.New("coinbase transaction too large")
	// ErrInvalidDifficulty means a set_difficulty or suggest_difficulty value was
	// non-positive, NaN, or infinite.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)
