// server.go - HTTP and WebSocket transport for the invocation engine.
// One listener serves POST /rpc, WebSocket upgrades on / and /ws, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
	"github.com/crypto-signal/crypto-signal-mcp/internal/metrics"
	"github.com/crypto-signal/crypto-signal-mcp/internal/registry"
	"github.com/crypto-signal/crypto-signal-mcp/internal/util"
)

// maxPostBodySize caps request bodies and WebSocket messages (10 MB).
const maxPostBodySize = 10 * 1024 * 1024

// Engine is the part of the invocation engine the transports need.
type Engine interface {
	Invoke(ctx context.Context, raw json.RawMessage) json.RawMessage
	Info() mcp.ServerInfo
	Registry() *registry.Registry
}

// Hooks receives transport-level events. *metrics.Metrics implements it.
type Hooks interface {
	ObserveHTTP(route string, status int)
	ConnOpened()
	ConnClosed()
	MessageReceived()
}

type nopHooks struct{}

func (nopHooks) ObserveHTTP(string, int) {}
func (nopHooks) ConnOpened()             {}
func (nopHooks) ConnClosed()             {}
func (nopHooks) MessageReceived()        {}

// Server adapts HTTP requests and WebSocket messages to engine invocations.
type Server struct {
	engine         Engine
	logger         *slog.Logger
	hooks          Hooks
	metricsHandler http.Handler
}

// Option configures a Server.
type Option func(s *Server)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records transport events in m and serves it on GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.hooks = m
			s.metricsHandler = m.Handler()
		}
	}
}

// New returns a Server for engine.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
		hooks:  nopHooks{},
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Post("/", s.handleRPC)
	r.Post("/rpc", s.handleRPC)
	r.Get("/", s.handleRoot)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/health", s.handleHealth)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}
	return r
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully within
// shutdownTimeout. Request contexts derive from ctx, so open WebSocket
// connections end when it is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	util.SafeGo(func() {
		errCh <- srv.Serve(ln)
	})
	s.logger.Info("http transport listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve http")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http transport shutting down", "timeout", shutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http")
	}
	return nil
}
