// Package metrics declares the load balancer's Prometheus instruments,
// following the teacher's promauto + namespace_subsystem_name convention
// (internal/v1/metrics).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForwardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lb",
		Subsystem: "http",
		Name:      "forwards_total",
		Help:      "Total HTTP requests forwarded to a backend, by backend id and outcome.",
	}, []string{"backend_id", "outcome"})

	ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lb",
		Subsystem: "backend",
		Name:      "active_connections",
		Help:      "Current active connections per backend replica.",
	}, []string{"backend_id"})

	BackendHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lb",
		Subsystem: "backend",
		Name:      "healthy",
		Help:      "1 if the backend is currently considered healthy, else 0.",
	}, []string{"backend_id"})

	WSSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lb",
		Subsystem: "ws",
		Name:      "sessions_active",
		Help:      "Current number of proxied websocket sessions.",
	})

	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lb",
		Subsystem: "ratelimit",
		Name:      "rejections_total",
		Help:      "Total requests rejected by the ingress rate limiter.",
	})
)
