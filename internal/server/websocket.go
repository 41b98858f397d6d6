// websocket.go - WebSocket transport: greeting on connect, one reply per message.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

// handleRoot upgrades WebSocket requests and describes the server otherwise.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if isWebSocketUpgrade(r) {
		s.handleWebSocket(w, r)
		return
	}
	writeJSON(w, http.StatusOK, mcp.SafeMarshal(s.greeting(), "{}"))
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func (s *Server) greeting() mcp.Greeting {
	return mcp.Greeting{
		Server: s.engine.Info(),
		Tools:  s.engine.Registry().Names(),
	}
}

// handleWebSocket serves one connection. Messages on a connection are answered
// in arrival order; connections are independent of each other.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // no auth and no origin policy on this server
	})
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(maxPostBodySize)

	s.hooks.ConnOpened()
	defer s.hooks.ConnClosed()

	connID := ulid.Make().String()
	log := s.logger.With("transport", "websocket", "conn_id", connID)
	ctx := logging.WithLogger(r.Context(), log)
	log.Debug("websocket connected", "remote", r.RemoteAddr)

	// The greeting is a Success envelope with id null, sent before any read.
	if err := conn.Write(ctx, websocket.MessageText, mcp.Encode(mcp.Success(nil, s.greeting()))); err != nil {
		log.Warn("websocket greeting failed", "error", err)
		return
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			s.logClose(ctx, err)
			return
		}
		s.hooks.MessageReceived()

		reply := s.replyTo(ctx, data)
		if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
			log.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) replyTo(ctx context.Context, data []byte) []byte {
	raw := []byte(strings.TrimSpace(string(data)))
	if err := checkJSON(raw); err != nil {
		logging.FromContext(ctx).Warn("websocket message is not JSON", "error", err)
		return mcp.Encode(mcp.TransportFailure(err))
	}
	return s.engine.Invoke(ctx, raw)
}

func (s *Server) logClose(ctx context.Context, err error) {
	log := logging.FromContext(ctx)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Debug("websocket closed")
	default:
		if ctx.Err() != nil {
			log.Debug("websocket closed by shutdown")
			return
		}
		log.Info("websocket closed", "error", err)
	}
}
