// Package metrics declares the app server's Prometheus instruments, mirroring
// the load balancer's metrics package and the teacher's promauto convention.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveChatSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "app",
		Subsystem: "chat",
		Name:      "active_sockets",
		Help:      "Current number of open chat fan-out websocket sessions.",
	})

	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "app",
		Subsystem: "chat",
		Name:      "messages_published_total",
		Help:      "Total chat messages published to the bus, by chat id.",
	}, []string{"chat_id"})

	SuggestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "app",
		Subsystem: "chat",
		Name:      "suggestions_total",
		Help:      "Total suggestion requests, by outcome.",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "app",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "status_class"})
)
