// stdio.go - Line-delimited JSON-RPC over stdin/stdout.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
	"github.com/crypto-signal/crypto-signal-mcp/internal/mcp"
)

// readChunkSize bounds a single read from stdin.
const readChunkSize = 32 * 1024

// Invoker evaluates one decoded transport unit and returns the serialized reply.
type Invoker interface {
	Invoke(ctx context.Context, raw json.RawMessage) json.RawMessage
}

// StdioServer serves one stream pair for the life of the process.
type StdioServer struct {
	invoker Invoker
	logger  *slog.Logger
}

// NewStdioServer returns a server dispatching to inv.
func NewStdioServer(inv Invoker, logger *slog.Logger) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{invoker: inv, logger: logger}
}

// Serve reads r until EOF, writing one reply line to w per decoded message.
// Chunks are processed strictly in order: every message from one read is answered
// before the next read, so a handler that never returns stalls the stream.
// ctx is checked between reads; a blocked read is not interrupted.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx = logging.WithLogger(ctx, s.logger.With("transport", "stdio"))
	framer := NewFramer(s.logger)
	buf := make([]byte, readChunkSize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if err := s.replyAll(ctx, w, framer.Feed(buf[:n])); err != nil {
				return err
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if err := s.replyAll(ctx, w, framer.Flush()); err != nil {
					return err
				}
				s.logger.Debug("stdin closed")
				return nil
			}
			return errors.Wrap(readErr, "read stdin")
		}
	}
}

func (s *StdioServer) replyAll(ctx context.Context, w io.Writer, msgs []json.RawMessage) error {
	for _, msg := range msgs {
		if err := writeLine(w, s.invoker.Invoke(ctx, msg)); err != nil {
			return errors.Wrap(err, "write stdout")
		}
	}
	return nil
}

// writeLine emits exactly one JSON payload plus exactly one newline.
func writeLine(w io.Writer, payload []byte) error {
	line := normalizePayload(payload)
	_, err := w.Write(append(line, '\n'))
	return err
}

// normalizePayload trims outer whitespace and guarantees a single-line JSON value.
func normalizePayload(payload []byte) []byte {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && bytes.IndexByte(trimmed, '\n') < 0 && json.Valid(trimmed) {
		return bytes.Clone(trimmed)
	}
	slog.Error("stdout invariant violation: invalid JSON payload", "bytes", len(payload))
	return mcp.Encode(mcp.TransportFailure(errors.New("server produced an invalid response")))
}
