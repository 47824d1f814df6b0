package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for requests sent through the fluent
// chain. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
}

// NewMetrics registers the collectors on registry. A nil registry uses a
// fresh private registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluenthttp_requests_total",
				Help: "Total number of HTTP requests sent",
			},
			[]string{"method", "status_code", "host"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fluenthttp_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "host"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fluenthttp_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "host"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluenthttp_transport_errors_total",
				Help: "Total number of requests that failed without a response",
			},
			[]string{"method", "host"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluenthttp_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"method", "host"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fluenthttp_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"method", "host"},
		),
	}
}

// Middleware records count, latency and in-flight requests.
func (m *Metrics) Middleware() Middleware {
	if m == nil {
		return nil
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			host := req.URL.Host
			inFlight := m.requestsInFlight.WithLabelValues(req.Method, host)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			resp, err := next.Do(req)
			if err != nil || resp == nil {
				m.errorsTotal.WithLabelValues(req.Method, host).Inc()
				return resp, err
			}

			status := strconv.Itoa(resp.StatusCode)
			m.requestsTotal.WithLabelValues(req.Method, status, host).Inc()
			m.requestDuration.WithLabelValues(req.Method, status, host).Observe(time.Since(start).Seconds())
			return resp, nil
		})
	}
}

// ObserveCache records a response cache lookup.
func (m *Metrics) ObserveCache(method, host string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.WithLabelValues(method, host).Inc()
		return
	}
	m.cacheMisses.WithLabelValues(method, host).Inc()
}
