// reserved.go - Methods answered by the engine itself, before registry lookup.
package dispatch

import "github.com/crypto-signal/crypto-signal-mcp/internal/mcp"

// reservedMethod computes the result of a reserved method. Reserved methods
// ignore their params and cannot fail.
type reservedMethod func(e *Engine) any

// reservedMethods is keyed by the names registry.New refuses to register.
var reservedMethods = map[string]reservedMethod{
	mcp.MethodInitialize:    func(e *Engine) any { return e.initialize() },
	mcp.MethodListTools:     func(e *Engine) any { return mcp.ToolsListResult{Tools: e.registry.List()} },
	mcp.MethodGetServerInfo: func(e *Engine) any { return e.info },
}

func (e *Engine) initialize() mcp.InitializeResult {
	return mcp.InitializeResult{
		ServerInfo: mcp.InitializeServerInfo{
			Name:         e.info.Name,
			Version:      e.info.Version,
			Capabilities: map[string]any{},
		},
		Tools: e.registry.List(),
	}
}
