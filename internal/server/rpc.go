// rpc.go - POST /rpc: one JSON document in, one JSON document out.
package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

// handleRPC answers 200 for every JSON-RPC outcome, failures included. Only
// transport problems (unreadable body, invalid JSON, panics) produce a 500.
// An empty body is treated as {}.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPostBodySize))
	if err != nil {
		s.writeTransportFailure(w, r, errors.Wrap(err, "read request body"))
		return
	}

	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		// An empty body is an empty request object; the engine answers -32600.
		raw = []byte("{}")
	}
	if err := checkJSON(raw); err != nil {
		s.writeTransportFailure(w, r, err)
		return
	}

	ctx := logging.WithLogger(r.Context(), s.logger.With(
		"transport", "http",
		"request_id", middleware.GetReqID(r.Context()),
	))
	writeJSON(w, http.StatusOK, s.engine.Invoke(ctx, raw))
}

// checkJSON reports the decoder's own message for malformed input.
func checkJSON(raw []byte) error {
	if len(raw) == 0 {
		return errors.New("empty request body")
	}
	if json.Valid(raw) {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

func (s *Server) writeTransportFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("rpc transport failure",
		"error", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, http.StatusInternalServerError, mcp.Encode(mcp.TransportFailure(err)))
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
