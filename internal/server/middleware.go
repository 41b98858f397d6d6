// middleware.go - Access logging and panic recovery.
package server

import (
	"net/http"
	"runtime/debug"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

// accessLog records status and latency for every request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.hooks.ObserveHTTP(route, m.Code)
		s.logger.Debug("http request",
			"method", r.Method,
			"route", route,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a handler panic into a 500 carrying a JSON-RPC Internal error
// envelope with id null.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				// The connection is already gone; let net/http handle it.
				panic(rvr)
			}
			s.logger.Error("panic serving request",
				"panic", rvr,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			if isWebSocketUpgrade(r) {
				return
			}
			writeJSON(w, http.StatusInternalServerError, mcp.Encode(mcp.TransportFailure(errors.Errorf("%v", rvr))))
		}()
		next.ServeHTTP(w, r)
	})
}
