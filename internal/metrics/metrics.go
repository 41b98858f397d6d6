// metrics.go - Prometheus instrumentation for dispatch and the HTTP adapter.
// Each Metrics owns its registry so tests and multiple servers never collide on
// the global default registerer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crypto_signal"

// Metrics implements dispatch.Observer and the server's transport hooks.
type Metrics struct {
	registry *prometheus.Registry

	rpcCalls    *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	batchSize   prometheus.Histogram
	httpStatus  *prometheus.CounterVec
	wsConns     prometheus.Gauge
	wsMessages  prometheus.Counter
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "JSON-RPC requests handled, by method and result code (0 = success).",
		}, []string{"method", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Time spent evaluating a JSON-RPC request.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"method"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_batch_size",
			Help:      "Number of requests per JSON-RPC batch.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses written, by route and status code.",
		}, []string{"route", "status"}),
		wsConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open WebSocket connections.",
		}),
		wsMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_total",
			Help:      "Inbound WebSocket messages.",
		}),
	}

	m.registry.MustRegister(
		m.rpcCalls,
		m.rpcDuration,
		m.batchSize,
		m.httpStatus,
		m.wsConns,
		m.wsMessages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCall counts one finished request and records its latency.
func (m *Metrics) ObserveCall(method string, code int, elapsed time.Duration) {
	m.rpcCalls.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveBatch records the number of elements in a batch request.
func (m *Metrics) ObserveBatch(size int) {
	m.batchSize.Observe(float64(size))
}

// ObserveHTTP counts one HTTP response by route pattern and status.
func (m *Metrics) ObserveHTTP(route string, status int) {
	m.httpStatus.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ConnOpened counts a newly accepted WebSocket connection.
func (m *Metrics) ConnOpened() { m.wsConns.Inc() }

// ConnClosed releases a connection counted by ConnOpened.
func (m *Metrics) ConnClosed() { m.wsConns.Dec() }

// MessageReceived counts inbound WebSocket messages.
func (m *Metrics) MessageReceived() { m.wsMessages.Inc() }
