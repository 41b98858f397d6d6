// registry.go - Tool descriptors and the name -> tool registry.
// The registry is built once from the tool collections and is read-only afterwards,
// so lookups take no locks.
package registry

import (
	"context"
	"encoding/json"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/util"
)

var (
	// ErrDuplicateTool is wrapped by New for every name registered twice.
	ErrDuplicateTool = errors.New("duplicate tool name")
	// ErrInvalidTool is wrapped by New for tools without a name or handler.
	ErrInvalidTool = errors.New("invalid tool")
	// ErrReservedTool is wrapped by New for tools named after an engine method.
	ErrReservedTool = errors.New("tool name is reserved")
)

// Handler computes a tool result from its params object. Params are never empty:
// callers substitute {} when the request carried none.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Tool is one registered tool. Immutable once passed to New.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     Handler
}

// Listing is the tool as shown to clients: no handler.
func (t Tool) Listing() mcp.Tool {
	return mcp.Tool{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
}

// Call checks required parameters and runs the handler. Every call ends in
// exactly one of a result or an error; a handler panic becomes an error.
func (t Tool) Call(ctx context.Context, params json.RawMessage) (any, error) {
	if missing := mcp.MissingRequired(params, t.Parameters); len(missing) > 0 {
		return nil, errors.Errorf("missing required parameter %q", missing[0])
	}

	var result any
	err := util.Recover(func() error {
		var err error
		result, err = t.Handler(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Registry maps tool names to tools and remembers registration order for listings.
type Registry struct {
	tools map[string]Tool
	order []string
}

// New merges the collections in order. Every duplicate, reserved or malformed
// tool is reported in the returned error; no partial registry is returned.
func New(collections ...[]Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool)}

	var merr *multierror.Error
	for _, collection := range collections {
		for _, tool := range collection {
			switch {
			case tool.Name == "":
				merr = multierror.Append(merr, errors.Wrap(ErrInvalidTool, "empty name"))
				continue
			case tool.Handler == nil:
				merr = multierror.Append(merr, errors.Wrapf(ErrInvalidTool, "%s: nil handler", tool.Name))
				continue
			case mcp.IsReservedMethod(tool.Name):
				merr = multierror.Append(merr, errors.Wrap(ErrReservedTool, tool.Name))
				continue
			}
			if _, exists := r.tools[tool.Name]; exists {
				merr = multierror.Append(merr, errors.Wrap(ErrDuplicateTool, tool.Name))
				continue
			}
			r.tools[tool.Name] = tool
			r.order = append(r.order, tool.Name)
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(err, "build tool registry")
	}
	return r, nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns every tool's listing in registration order.
func (r *Registry) List() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Listing())
	}
	return out
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len is the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}
