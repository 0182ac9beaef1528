package proxy

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

type metrics struct {
	once           sync.Once
	initialized    bool
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
}

func (m *metrics) init(registry *prometheus.Registry) {
	m.once.Do(func() {
		m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wpstack",
			Subsystem: "proxy",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "rule", "status"})

		m.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wpstack",
			Subsystem: "proxy",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of proxied requests",
			Buckets:   histogramBuckets,
		}, []string{"method", "rule", "status"})

		m.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wpstack",
			Subsystem: "proxy",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited login responses",
		}, []string{"rule", "key"})

		collectors := []prometheus.Collector{m.requestTotal, m.requestLatency, m.rateLimitHits}
		for _, collector := range collectors {
			if err := registry.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						if collector == m.requestTotal {
							m.requestTotal = v
						} else if collector == m.rateLimitHits {
							m.rateLimitHits = v
						}
					case *prometheus.HistogramVec:
						m.requestLatency = v
					}
				}
			}
		}
		m.initialized = true
	})
}

func (m *metrics) recordRequest(method, rule string, status int, duration time.Duration) {
	if !m.initialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"rule":   rule,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

func (m *metrics) recordRateLimitHit(rule, key string) {
	if !m.initialized {
		return
	}
	m.rateLimitHits.With(prometheus.Labels{"rule": rule, "key": key}).Inc()
}
