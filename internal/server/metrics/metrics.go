// Package metrics holds the Prometheus instruments shared by both transports.
package metrics

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/blogd/internal/common"
	"github.com/dmitrijs2005/blogd/internal/server/authz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"

	outcomeOK = "OK"
)

type Metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blogd_requests_total",
				Help: "Total number of requests by transport, operation and outcome kind",
			},
			[]string{"transport", "operation", "kind"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "blogd_request_duration_seconds",
				Help:    "Duration of requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"transport", "operation"},
		),
		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blogd_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"transport", "operation"},
		),
	}
}

// Observe records one finished request. A nil err is counted as OK. A nil
// *Metrics records nothing.
func (m *Metrics) Observe(transport string, op authz.Operation, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	kind := outcomeOK
	if err != nil {
		kind = string(common.KindOf(err))
	}
	m.requests.WithLabelValues(transport, string(op), kind).Inc()
	m.duration.WithLabelValues(transport, string(op)).Observe(elapsed.Seconds())
	if kind == string(common.KindRateLimited) {
		m.rateLimited.WithLabelValues(transport, string(op)).Inc()
	}
}

// TrackBuckets exports the live rate-limit bucket count, sampled on scrape.
func (m *Metrics) TrackBuckets(count func() int) {
	promauto.With(m.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "blogd_ratelimit_buckets",
			Help: "Number of live rate-limit buckets",
		},
		func() float64 { return float64(count()) },
	)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
