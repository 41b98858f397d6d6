// framer.go - Newline framing for the stdio transport.
// Bytes arrive in arbitrary chunks; complete lines are decoded and everything
// after the last newline waits in the pending buffer for the next chunk.
package bridge

import (
	"bytes"
	"encoding/json"
	"log/slog"
)

// Framer turns a byte stream into JSON messages, one per line.
// Not safe for concurrent use: the stdio loop owns it.
type Framer struct {
	pending []byte
	logger  *slog.Logger
}

// NewFramer returns an empty framer. Parse failures are logged to logger.
func NewFramer(logger *slog.Logger) *Framer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Framer{logger: logger}
}

// Feed appends chunk and returns the messages completed by it, in order.
// Blank lines are skipped; lines that are not valid JSON are logged and dropped.
// Without a newline nothing is emitted and the buffer keeps growing.
func (f *Framer) Feed(chunk []byte) []json.RawMessage {
	f.pending = append(f.pending, chunk...)

	last := bytes.LastIndexByte(f.pending, '\n')
	if last < 0 {
		return nil
	}

	var out []json.RawMessage
	for _, line := range bytes.Split(f.pending[:last], []byte{'\n'}) {
		if msg, ok := f.parse(line); ok {
			out = append(out, msg)
		}
	}

	// Copy the tail so the consumed prefix can be collected.
	f.pending = bytes.Clone(f.pending[last+1:])
	return out
}

// Flush decodes whatever is left after the final newline, for use at EOF.
func (f *Framer) Flush() []json.RawMessage {
	tail := f.pending
	f.pending = nil
	if msg, ok := f.parse(tail); ok {
		return []json.RawMessage{msg}
	}
	return nil
}

// Pending is the number of buffered bytes not yet terminated by a newline.
func (f *Framer) Pending() int {
	return len(f.pending)
}

func (f *Framer) parse(line []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, false
	}
	if !json.Valid(trimmed) {
		f.logger.Warn("dropping unparseable stdio line", "bytes", len(trimmed), "preview", preview(trimmed))
		return nil, false
	}
	return json.RawMessage(bytes.Clone(trimmed)), true
}

// preview truncates s to 200 bytes for log output.
func preview(s []byte) string {
	const limit = 200
	if len(s) > limit {
		return string(s[:limit]) + "..."
	}
	return string(s)
}
