package main

import (
	"encoding/json"
)

// JSONRPCRequest is an outbound JSON-RPC 1.0 request: mining.subscribe,
// mining.suggest_difficulty, mining.authorize, mining.submit.
type JSONRPCRequest struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// JSONRPCArray is a JSON-RPC params/result array.
type JSONRPCArray []interface{}

// JSONRPCObj is a JSON-RPC params/result object.
type JSONRPCObj map[string]interface{}

// SetParams copies its arguments, in order, into the request's Params.
func (rpcData *JSONRPCRequest) SetParams(param ...interface{}) {
	rpcData.Params = param
}

// ToJSONBytes marshals the request to a JSON byte sequence.
func (rpcData *JSONRPCRequest) ToJSONBytes() ([]byte, error) {
	return json.Marshal(rpcData)
}

// ToJSONBytesLine marshals the request and appends the stratum line
// terminator, ready to be written directly to the socket.
func (rpcData *JSONRPCRequest) ToJSONBytesLine() ([]byte, error) {
	bytes, err := rpcData.ToJSONBytes()
	if err != nil {
		return nil, err
	}
	return append(bytes, '\n'), nil
}

// JSONRPCLine is the union of everything that can arrive on the wire from a
// stratum server: a response to one of our requests (ID + Result/Error) or
// a server-initiated notification (Method + Params). Both shapes are parsed
// into the same struct because, per spec.md §4.D, notifications and
// responses can interleave arbitrarily on the same connection and must be
// told apart by which fields are present, not by framing.
type JSONRPCLine struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method,omitempty"`
	Params []interface{} `json:"params,omitempty"`
	Result interface{}   `json:"result,omitempty"`
	Error  interface{}   `json:"error,omitempty"`
}

// IsNotification reports whether the line is a server-initiated method call
// (mining.notify, mining.set_difficulty) rather than a response to a
// request we sent.
func (line *JSONRPCLine) IsNotification() bool {
	return len(line.Method) > 0
}

// PoolError decodes the line's error field, if any, into a *PoolError.
func (line *JSONRPCLine) PoolError() *PoolError {
	return NewPoolErrorFromArray(line.Error)
}

// NewJSONRPCLine parses one stratum wire line into a JSONRPCLine.
func NewJSONRPCLine(lineJSON []byte) (*JSONRPCLine, error) {
	rpcData := new(JSONRPCLine)
	err := json.Unmarshal(lineJSON, rpcData)
	return rpcData, err
}
