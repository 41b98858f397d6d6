// protocol.go - JSON-RPC 2.0 request and response types shared by every transport.
package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Version is the only JSON-RPC version this server speaks.
const Version = "2.0"

// Methods answered by the engine itself. No tool may register under these names.
const (
	MethodInitialize    = "initialize"
	MethodListTools     = "system.listTools"
	MethodGetServerInfo = "system.getServerInfo"
)

// IsReservedMethod reports whether name is one of the engine's own methods.
func IsReservedMethod(name string) bool {
	switch name {
	case MethodInitialize, MethodListTools, MethodGetServerInfo:
		return true
	}
	return false
}

var (
	errNotObject = errors.New("request must be a JSON object")
	nullID       = json.RawMessage("null")
)

// Request represents one incoming JSON-RPC call. Requests are decoded leniently:
// a missing or non-string method is recorded rather than rejected so the caller
// can still answer with the request's id.
type Request struct {
	JSONRPC string `json:"jsonrpc"` // not enforced; clients in the wild omit it
	// ID is the raw id token (string, number, or anything else the client sent).
	// nil means the id was absent or explicitly null.
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`

	methodPresent bool
	methodIsText  bool
}

// UnmarshalJSON captures whether method was present and whether it was a string.
func (r *Request) UnmarshalJSON(data []byte) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return errNotObject
	}
	if object == nil {
		return errNotObject
	}

	*r = Request{}

	if raw, ok := object["jsonrpc"]; ok {
		_ = json.Unmarshal(raw, &r.JSONRPC)
	}

	if raw, ok := object["id"]; ok && !isNull(raw) {
		r.ID = json.RawMessage(bytes.TrimSpace(raw))
	}

	if raw, ok := object["params"]; ok && !isNull(raw) {
		r.Params = json.RawMessage(bytes.TrimSpace(raw))
	}

	raw, ok := object["method"]
	if !ok || isNull(raw) {
		return nil
	}
	r.methodPresent = true
	if err := json.Unmarshal(raw, &r.Method); err == nil {
		r.methodIsText = true
	}
	return nil
}

// NewRequest builds a request in memory. id may be nil for a notification-style call.
func NewRequest(id any, method string, params any) (Request, error) {
	req := Request{JSONRPC: Version, Method: method, methodPresent: true, methodIsText: true}
	if id != nil {
		b, err := json.Marshal(id)
		if err != nil {
			return Request{}, err
		}
		req.ID = b
	}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return Request{}, err
		}
		req.Params = b
	}
	return req, nil
}

// Validate reports an Invalid Request error when method is absent, empty, or not a string.
func (r Request) Validate() *RPCError {
	if !r.methodPresent || !r.methodIsText || r.Method == "" {
		return InvalidRequest()
	}
	return nil
}

// ResponseID returns the id the response must carry: the request id, or null.
func (r Request) ResponseID() json.RawMessage {
	if len(r.ID) == 0 {
		return nullID
	}
	return r.ID
}

// ParamsOrEmpty returns params, substituting an empty object when none were sent.
func (r Request) ParamsOrEmpty() json.RawMessage {
	if len(r.Params) == 0 {
		return json.RawMessage("{}")
	}
	return r.Params
}

// Response is one JSON-RPC 2.0 envelope. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// IsError reports whether the envelope is a Failure.
func (r Response) IsError() bool {
	return r.Error != nil
}

// IsBatch reports whether a raw transport unit is a JSON array.
func IsBatch(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), nullID)
}
