// stdio_test.go - Tests for the stdio serve loop.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypto-signal/crypto-signal-mcp/internal/logging"
)

// echoInvoker answers every message with {"seen": <message>}.
type echoInvoker struct {
	seen []string
}

func (e *echoInvoker) Invoke(_ context.Context, raw json.RawMessage) json.RawMessage {
	e.seen = append(e.seen, string(raw))
	return json.RawMessage(`{"seen":` + string(raw) + `}`)
}

func TestStdioServer_OneLinePerMessage(t *testing.T) {
	t.Parallel()

	in := "{\"id\":1}\n{bad}\n\n{\"id\":2}\n{\"id\":3}"
	var out bytes.Buffer
	inv := &echoInvoker{}

	err := NewStdioServer(inv, logging.Void()).Serve(context.Background(), strings.NewReader(in), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Equal(t, []string{
		`{"seen":{"id":1}}`,
		`{"seen":{"id":2}}`,
		`{"seen":{"id":3}}`,
	}, lines)
	assert.True(t, strings.HasSuffix(out.String(), "}\n"))
}

func TestStdioServer_ByteAtATime(t *testing.T) {
	t.Parallel()

	in := "{\"id\":\"a\"}\n{\"id\":\"b\"}\n"
	var out bytes.Buffer
	inv := &echoInvoker{}

	err := NewStdioServer(inv, logging.Void()).Serve(context.Background(), iotest.OneByteReader(strings.NewReader(in)), &out)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"id":"a"}`, `{"id":"b"}`}, inv.seen)
	assert.Equal(t, "{\"seen\":{\"id\":\"a\"}}\n{\"seen\":{\"id\":\"b\"}}\n", out.String())
}

func TestStdioServer_ReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("pipe closed")
	r := io.MultiReader(strings.NewReader("{\"id\":1}\n"), iotest.ErrReader(boom))
	var out bytes.Buffer

	err := NewStdioServer(&echoInvoker{}, logging.Void()).Serve(context.Background(), r, &out)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "{\"seen\":{\"id\":1}}\n", out.String())
}

func TestStdioServer_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	inv := &echoInvoker{}

	require.NoError(t, NewStdioServer(inv, logging.Void()).Serve(ctx, strings.NewReader("{\"id\":1}\n"), &out))
	assert.Empty(t, inv.seen)
	assert.Zero(t, out.Len())
}

func TestNormalizePayload(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"id":1}`, string(normalizePayload([]byte("  {\"id\":1}\n"))))

	for _, bad := range []string{"", "{oops", "{\"a\":\n1}"} {
		var env map[string]any
		require.NoError(t, json.Unmarshal(normalizePayload([]byte(bad)), &env), bad)
		assert.Nil(t, env["id"])
		assert.Equal(t, float64(-32603), env["error"].(map[string]any)["code"])
	}
}
