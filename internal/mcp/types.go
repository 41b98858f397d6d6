// types.go - Typed result payloads for the reserved methods and the WebSocket greeting.
package mcp

// ServerInfo identifies the server in system.getServerInfo.
type ServerInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Tool describes a registered tool. The handler is never part of a listing.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// InitializeServerInfo is the serverInfo block of an initialize result.
type InitializeServerInfo struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	Capabilities map[string]any `json:"capabilities"`
}

// InitializeResult is the result of an initialize request.
type InitializeResult struct {
	ServerInfo InitializeServerInfo `json:"serverInfo"`
	Tools      []Tool               `json:"tools"`
}

// ToolsListResult is the result of system.listTools.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// Greeting is pushed to every WebSocket client as soon as it connects.
type Greeting struct {
	Server ServerInfo `json:"server"`
	Tools  []string   `json:"tools"`
}
