// engine_test.go - Tests for single, batch, and reserved-method invocation.
package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/schema"
)

var testInfo = mcp.ServerInfo{
	Name:        "crypto-signal",
	Description: "test server",
	Version:     "0.1.0",
}

type recordingObserver struct {
	mu      sync.Mutex
	calls   []string
	codes   []int
	batches []int
}

func (o *recordingObserver) ObserveCall(method string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method)
	o.codes = append(o.codes, code)
}

func (o *recordingObserver) ObserveBatch(size int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, size)
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	tools := []registry.Tool{
		{
			Name:        "echo",
			Description: "returns its params",
			Parameters:  schema.Object(map[string]any{"value": schema.String("")}),
			Handler: func(_ context.Context, params json.RawMessage) (any, error) {
				return params, nil
			},
		},
		{
			Name:       "fail",
			Parameters: schema.Object(map[string]any{}),
			Handler: func(context.Context, json.RawMessage) (any, error) {
				return nil, errors.New("exchange unreachable")
			},
		},
		{
			Name:       "explode",
			Parameters: schema.Object(map[string]any{}),
			Handler: func(context.Context, json.RawMessage) (any, error) {
				panic("nil portfolio")
			},
		},
		{
			// Sleeps longer for lower n so concurrent completion order is reversed.
			Name:       "delay",
			Parameters: schema.Object(map[string]any{"n": schema.Number("")}, "n"),
			Handler: func(_ context.Context, params json.RawMessage) (any, error) {
				var args struct {
					N int `json:"n"`
				}
				if err := mcp.DecodeParams(params, &args); err != nil {
					return nil, err
				}
				time.Sleep(time.Duration(5-args.N) * 10 * time.Millisecond)
				return map[string]int{"n": args.N}, nil
			},
		},
	}
	reg, err := registry.New(tools)
	require.NoError(t, err)
	return New(reg, testInfo, opts...)
}

func invoke(t *testing.T, e *Engine, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(e.Invoke(context.Background(), json.RawMessage(raw)), &out))
	return out
}

func errorCode(t *testing.T, resp map[string]any) int {
	t.Helper()
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "expected error member in %v", resp)
	return int(errObj["code"].(float64))
}

func TestInvoke_RegisteredTool(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	out := e.Invoke(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","method":"echo","params":{"value":"x"},"id":11}`))
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{"value":"x"},"id":11}`, string(out))
}

func TestInvoke_ParamsDefaultToEmptyObject(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	out := e.Invoke(context.Background(), json.RawMessage(`{"method":"echo","id":"s"}`))
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{},"id":"s"}`, string(out))
}

func TestInvoke_InvalidRequest(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	tests := []struct {
		name   string
		raw    string
		wantID any
	}{
		{"missing method", `{"id":1}`, float64(1)},
		{"numeric method", `{"method":7,"id":"q"}`, "q"},
		{"empty method", `{"method":"","id":2}`, float64(2)},
		{"not an object", `"initialize"`, nil},
		{"number", `42`, nil},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp := invoke(t, e, tc.raw)
			assert.Equal(t, mcp.CodeInvalidRequest, errorCode(t, resp))
			assert.Equal(t, tc.wantID, resp["id"])
			assert.NotContains(t, resp, "result")
		})
	}
}

func TestInvoke_MethodNotFound(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	resp := invoke(t, e, `{"method":"get_moon_price","id":3}`)
	assert.Equal(t, mcp.CodeMethodNotFound, errorCode(t, resp))
	assert.Contains(t, resp["error"].(map[string]any)["message"], "get_moon_price")
	assert.Equal(t, float64(3), resp["id"])
}

func TestInvoke_HandlerErrorCarriesData(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	resp := invoke(t, e, `{"method":"fail","id":4}`)
	errObj := resp["error"].(map[string]any)
	assert.Equal(t, float64(mcp.CodeInternalError), errObj["code"])
	assert.Equal(t, "Internal error", errObj["message"])
	assert.Equal(t, "exchange unreachable", errObj["data"])
	assert.Equal(t, float64(4), resp["id"])
}

func TestInvoke_HandlerPanicIsInternalError(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	resp := invoke(t, e, `{"method":"explode","id":5}`)
	assert.Equal(t, mcp.CodeInternalError, errorCode(t, resp))
	assert.Contains(t, resp["error"].(map[string]any)["data"], "nil portfolio")
}

func TestInvoke_MissingRequiredParam(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	resp := invoke(t, e, `{"method":"delay","params":{},"id":6}`)
	assert.Equal(t, mcp.CodeInternalError, errorCode(t, resp))
	assert.Equal(t, `missing required parameter "n"`, resp["error"].(map[string]any)["data"])
}

func TestInvoke_NullIDEchoedAsNull(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	out := e.Invoke(context.Background(), json.RawMessage(`{"method":"system.getServerInfo"}`))
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{"name":"crypto-signal","description":"test server","version":"0.1.0"},"id":null}`, string(out))
}

func TestReserved_Initialize(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	resp := invoke(t, e, `{"method":"initialize","params":{"protocolVersion":"whatever"},"id":1}`)
	result := resp["result"].(map[string]any)
	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "crypto-signal", serverInfo["name"])
	assert.Equal(t, "0.1.0", serverInfo["version"])
	assert.Equal(t, map[string]any{}, serverInfo["capabilities"])
	assert.Len(t, result["tools"], 4)
}

func TestReserved_ListToolsMatchesRegistry(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	resp := invoke(t, e, `{"method":"system.listTools","id":1}`)
	tools := resp["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, e.Registry().Len())

	seen := map[string]bool{}
	for _, raw := range tools {
		tool := raw.(map[string]any)
		name := tool["name"].(string)
		assert.False(t, seen[name], "duplicate %s", name)
		seen[name] = true
		assert.Contains(t, tool, "description")
		assert.Contains(t, tool, "parameters")
		assert.NotContains(t, tool, "handler")
	}
	assert.Equal(t, "echo", tools[0].(map[string]any)["name"])
}

func TestReservedMethods_MatchRegistryGuard(t *testing.T) {
	t.Parallel()
	require.Len(t, reservedMethods, 3)
	for name := range reservedMethods {
		assert.True(t, mcp.IsReservedMethod(name), name)
	}
	assert.False(t, mcp.IsReservedMethod("echo"))
}

func TestInvokeBatch_OrderAndLength(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	raw := `[
		{"method":"delay","params":{"n":0},"id":"a"},
		{"method":"nope","id":"b"},
		{"method":"delay","params":{"n":4},"id":"c"},
		{"id":"d"},
		{"method":"fail","id":"e"},
		{"method":"system.getServerInfo","id":"f"}
	]`
	var out []map[string]any
	require.NoError(t, json.Unmarshal(e.Invoke(context.Background(), json.RawMessage(raw)), &out))
	require.Len(t, out, 6)

	ids := make([]any, len(out))
	for i, resp := range out {
		ids[i] = resp["id"]
	}
	assert.Equal(t, []any{"a", "b", "c", "d", "e", "f"}, ids)

	assert.Equal(t, map[string]any{"n": float64(0)}, out[0]["result"])
	assert.Equal(t, mcp.CodeMethodNotFound, errorCode(t, out[1]))
	assert.Equal(t, map[string]any{"n": float64(4)}, out[2]["result"])
	assert.Equal(t, mcp.CodeInvalidRequest, errorCode(t, out[3]))
	assert.Equal(t, mcp.CodeInternalError, errorCode(t, out[4]))
	assert.Equal(t, "crypto-signal", out[5]["result"].(map[string]any)["name"])
}

func TestInvokeBatch_Empty(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	assert.Equal(t, `[]`, string(e.Invoke(context.Background(), json.RawMessage(`[]`))))
}

func TestInvokeBatch_NonObjectElement(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(e.Invoke(context.Background(), json.RawMessage(`[1,{"method":"echo","id":2}]`)), &out))
	require.Len(t, out, 2)
	assert.Equal(t, mcp.CodeInvalidRequest, errorCode(t, out[0]))
	assert.Nil(t, out[0]["id"])
	assert.Equal(t, float64(2), out[1]["id"])
}

func TestInvokeRequest_InMemory(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	req, err := mcp.NewRequest(9, "echo", map[string]string{"value": "v"})
	require.NoError(t, err)
	resp := e.InvokeRequest(context.Background(), req)
	require.False(t, resp.IsError())
	assert.JSONEq(t, `{"value":"v"}`, string(resp.Result))
	assert.JSONEq(t, `9`, string(resp.ID))
}

func TestObserver_ReceivesOutcomes(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	e := newTestEngine(t, WithObserver(obs), WithClock(clockwork.NewFakeClock()))

	invoke(t, e, `{"method":"echo","id":1}`)
	invoke(t, e, `{"method":"nope","id":2}`)
	invoke(t, e, `{"method":"fail","id":3}`)
	e.Invoke(context.Background(), json.RawMessage(`[{"method":"system.listTools","id":4}]`))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []string{"echo", unknownMethod, "fail", "system.listTools"}, obs.calls)
	assert.Equal(t, []int{0, mcp.CodeMethodNotFound, mcp.CodeInternalError, 0}, obs.codes)
	assert.Equal(t, []int{1}, obs.batches)
}

// unencodableQuote panics while being encoded, after its handler has returned.
type unencodableQuote struct{}

func (unencodableQuote) MarshalJSON() ([]byte, error) {
	panic("quote feed closed")
}

func newEncodingEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := registry.New([]registry.Tool{
		{
			Name:       "stale_quote",
			Parameters: schema.Object(map[string]any{}),
			Handler: func(context.Context, json.RawMessage) (any, error) {
				return unencodableQuote{}, nil
			},
		},
		{
			Name:       "silent_fail",
			Parameters: schema.Object(map[string]any{}),
			Handler: func(context.Context, json.RawMessage) (any, error) {
				return nil, errors.New("")
			},
		},
		{
			Name:       "ping",
			Parameters: schema.Object(map[string]any{}),
			Handler: func(context.Context, json.RawMessage) (any, error) {
				return "pong", nil
			},
		},
	})
	require.NoError(t, err)
	return New(reg, testInfo)
}

func TestInvoke_ResultEncodingPanicIsInternalError(t *testing.T) {
	t.Parallel()
	e := newEncodingEngine(t)

	var out []byte
	require.NotPanics(t, func() {
		out = e.Invoke(context.Background(), json.RawMessage(`{"method":"stale_quote","id":1}`))
	})

	var resp map[string]any
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, mcp.CodeInternalError, errorCode(t, resp))
	assert.Contains(t, resp["error"].(map[string]any)["data"], "quote feed closed")
	assert.Equal(t, float64(1), resp["id"])
}

func TestInvokeBatch_ResultEncodingPanicStaysInItsSlot(t *testing.T) {
	t.Parallel()
	e := newEncodingEngine(t)

	var out []byte
	require.NotPanics(t, func() {
		out = e.Invoke(context.Background(), json.RawMessage(
			`[{"method":"ping","id":"a"},{"method":"stale_quote","id":"b"},{"method":"ping","id":"c"}]`))
	})

	var resps []map[string]any
	require.NoError(t, json.Unmarshal(out, &resps))
	require.Len(t, resps, 3)
	assert.Equal(t, "pong", resps[0]["result"])
	assert.Equal(t, mcp.CodeInternalError, errorCode(t, resps[1]))
	assert.Equal(t, "b", resps[1]["id"])
	assert.Equal(t, "pong", resps[2]["result"])
}

func TestInvoke_EmptyHandlerErrorKeepsData(t *testing.T) {
	t.Parallel()
	e := newEncodingEngine(t)

	out := e.Invoke(context.Background(), json.RawMessage(`{"method":"silent_fail","id":2}`))
	assert.JSONEq(t, `{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error","data":""},"id":2}`, string(out))
}
