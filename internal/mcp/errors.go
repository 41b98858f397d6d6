// errors.go - JSON-RPC error codes and the error object carried by Failure envelopes.
package mcp

import "fmt"

// JSON-RPC 2.0 error codes this server answers with. Bad or missing tool
// params are handler failures and use CodeInternalError.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

// Messages used in error objects. Clients match on the code, not the text.
const (
	MessageInvalidRequest = "Invalid Request"
	MessageInternalError  = "Internal error"
)

// RPCError is the error member of a Failure envelope.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error lets an RPCError travel as a Go error.
func (e *RPCError) Error() string {
	if e.Data != nil && e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// InvalidRequest is returned for requests without a usable method.
func InvalidRequest() *RPCError {
	return &RPCError{Code: CodeInvalidRequest, Message: MessageInvalidRequest}
}

// MethodNotFound names the method the caller attempted.
func MethodNotFound(method string) *RPCError {
	return &RPCError{Code: CodeMethodNotFound, Message: "Method not found: " + method}
}

// InternalError carries the human-readable failure in data, even when empty.
func InternalError(data string) *RPCError {
	return &RPCError{Code: CodeInternalError, Message: MessageInternalError, Data: data}
}

// GenericInternalError has no data; used when there is no failure to describe.
func GenericInternalError() *RPCError {
	return &RPCError{Code: CodeInternalError, Message: MessageInternalError}
}
