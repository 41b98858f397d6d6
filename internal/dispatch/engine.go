// engine.go - Transport-agnostic JSON-RPC invocation.
// Adapters hand the engine one decoded transport unit (object or array) and get
// back the serialized reply. The engine never sees a socket or a pipe.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/util"
)

// Observer is told about every completed request. code is 0 for success.
type Observer interface {
	ObserveCall(method string, code int, elapsed time.Duration)
	ObserveBatch(size int)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, int, time.Duration) {}
func (nopObserver) ObserveBatch(int)                       {}

// unknownMethod labels calls that never resolved, keeping label sets bounded.
const unknownMethod = "unknown"

// Engine resolves requests against the reserved methods and a tool registry.
type Engine struct {
	registry *registry.Registry
	info     mcp.ServerInfo
	observer Observer
	clock    clockwork.Clock
}

// Option configures an Engine.
type Option func(e *Engine)

// WithObserver reports call outcomes, typically to metrics.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithClock sets the clock used to time calls.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New returns an Engine serving reg. The registry must not be nil.
func New(reg *registry.Registry, info mcp.ServerInfo, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		info:     info,
		observer: nopObserver{},
		clock:    clockwork.NewRealClock(),
	}
	for _, apply := range opts {
		apply(e)
	}
	return e
}

// Info is the server identity reported by system.getServerInfo.
func (e *Engine) Info() mcp.ServerInfo {
	return e.info
}

// Registry exposes the tool registry to adapters (e.g. for the WebSocket greeting).
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Invoke handles one transport unit. raw must be syntactically valid JSON;
// adapters check that before calling. An array is evaluated as a batch.
func (e *Engine) Invoke(ctx context.Context, raw json.RawMessage) json.RawMessage {
	if mcp.IsBatch(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return mcp.Encode(mcp.Failure(nil, mcp.InvalidRequest()))
		}
		return mcp.EncodeBatch(e.InvokeBatch(ctx, items))
	}
	return mcp.Encode(e.invokeRaw(ctx, raw))
}

// InvokeBatch evaluates every element concurrently. The reply at index i always
// answers the request at index i.
func (e *Engine) InvokeBatch(ctx context.Context, items []json.RawMessage) []mcp.Response {
	e.observer.ObserveBatch(len(items))

	out := make([]mcp.Response, len(items))
	var eg errgroup.Group
	for i, item := range items {
		i, item := i, item
		eg.Go(func() error {
			out[i] = e.invokeRaw(ctx, item)
			return nil
		})
	}
	// Elements never return errors; failures are already envelopes.
	_ = eg.Wait()
	return out
}

func (e *Engine) invokeRaw(ctx context.Context, raw json.RawMessage) mcp.Response {
	var req mcp.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		e.observer.ObserveCall(unknownMethod, mcp.CodeInvalidRequest, 0)
		return mcp.Failure(nil, mcp.InvalidRequest())
	}
	return e.InvokeRequest(ctx, req)
}

// InvokeRequest evaluates a single decoded request. It never panics: a panic
// while calling the tool or encoding its result becomes an Internal error.
func (e *Engine) InvokeRequest(ctx context.Context, req mcp.Request) mcp.Response {
	start := e.clock.Now()

	var (
		resp  mcp.Response
		label string
	)
	if err := util.Recover(func() error {
		resp, label = e.invoke(ctx, req)
		return nil
	}); err != nil {
		logging.FromContext(ctx).Error("request panicked", "method", req.Method, "error", err)
		resp = mcp.Failure(req.ResponseID(), mcp.InternalError(err.Error()))
		label = unknownMethod
		if _, ok := e.registry.Lookup(req.Method); ok {
			label = req.Method
		}
	}

	code := 0
	if resp.Error != nil {
		code = resp.Error.Code
	}
	e.observer.ObserveCall(label, code, e.clock.Since(start))
	return resp
}

func (e *Engine) invoke(ctx context.Context, req mcp.Request) (mcp.Response, string) {
	id := req.ResponseID()

	if rpcErr := req.Validate(); rpcErr != nil {
		return mcp.Failure(id, rpcErr), unknownMethod
	}

	if handler, ok := reservedMethods[req.Method]; ok {
		return mcp.Success(id, handler(e)), req.Method
	}

	tool, ok := e.registry.Lookup(req.Method)
	if !ok {
		return mcp.Failure(id, mcp.MethodNotFound(req.Method)), unknownMethod
	}

	params := req.ParamsOrEmpty()
	log := logging.FromContext(ctx)
	if warnings := mcp.UnknownParams(params, tool.Parameters); len(warnings) > 0 {
		log.Warn("unknown tool parameters", "tool", tool.Name, "warnings", warnings)
	}

	result, err := tool.Call(ctx, params)
	if err != nil {
		log.Debug("tool call failed", "tool", tool.Name, "error", err)
		return mcp.Failure(id, mcp.InternalError(err.Error())), tool.Name
	}
	return mcp.Success(id, result), tool.Name
}
