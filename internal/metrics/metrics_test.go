// metrics_test.go - Tests for collector wiring and the exposition handler.
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveCall("generate_signals", 0, 3*time.Millisecond)
	m.ObserveCall("generate_signals", 0, time.Millisecond)
	m.ObserveCall("unknown", -32601, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("generate_signals", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("unknown", "-32601")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.rpcDuration))
}

func TestConnectionGauge(t *testing.T) {
	t.Parallel()

	m := New()
	m.ConnOpened()
	m.ConnOpened()
	m.ConnClosed()
	m.MessageReceived()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsConns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsMessages))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveBatch(3)
	m.ObserveHTTP("/rpc", http.StatusOK)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "crypto_signal_rpc_batch_size_count 1")
	assert.Contains(t, string(body), `crypto_signal_http_responses_total{route="/rpc",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	t.Parallel()
	// Two instances must not panic on duplicate registration.
	a, b := New(), New()
	assert.NotSame(t, a.Registry(), b.Registry())
}
