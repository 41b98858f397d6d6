// health.go - Liveness endpoint.
package server

import (
	"net/http"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Tools   int    `json:"tools"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.engine.Info()
	writeJSON(w, http.StatusOK, mcp.SafeMarshal(HealthResponse{
		Status:  "ok",
		Name:    info.Name,
		Version: info.Version,
		Tools:   s.engine.Registry().Len(),
	}, `{"status":"ok"}`))
}
