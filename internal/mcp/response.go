// response.go - Envelope construction and JSON serialization helpers.
package mcp

import (
	"encoding/json"
	"log/slog"
)

// genericFailure is written when an envelope itself cannot be serialized.
const genericFailure = `{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"},"id":null}`

// SafeMarshal marshals v, returning fallback if marshaling fails.
func SafeMarshal(v any, fallback string) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("json marshal failed", "error", err)
		return json.RawMessage(fallback)
	}
	return json.RawMessage(b)
}

// Success builds a Success envelope. A result that cannot be serialized turns
// into an Internal error Failure for the same id.
func Success(id json.RawMessage, result any) Response {
	b, err := json.Marshal(result)
	if err != nil {
		return Failure(id, InternalError(err.Error()))
	}
	return Response{JSONRPC: Version, Result: b, ID: normalizeID(id)}
}

// Failure builds a Failure envelope.
func Failure(id json.RawMessage, rpcErr *RPCError) Response {
	if rpcErr == nil {
		rpcErr = GenericInternalError()
	}
	return Response{JSONRPC: Version, Error: rpcErr, ID: normalizeID(id)}
}

// TransportFailure is the envelope adapters emit when no request id is available.
func TransportFailure(err error) Response {
	if err == nil {
		return Failure(nil, GenericInternalError())
	}
	return Failure(nil, InternalError(err.Error()))
}

// Encode serializes one envelope, falling back to a generic Internal error.
func Encode(resp Response) []byte {
	return SafeMarshal(resp, genericFailure)
}

// EncodeBatch serializes a batch of envelopes as a JSON array.
func EncodeBatch(resps []Response) []byte {
	if resps == nil {
		resps = []Response{}
	}
	return SafeMarshal(resps, genericFailure)
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return nullID
	}
	return id
}
