// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the runtime core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streambridge_dispatch_total",
		Help: "Total number of commands dispatched into the runtime, by action kind and routing",
	}, []string{"action", "routing"})

	BoundaryDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streambridge_boundary_drops_total",
		Help: "Total number of malformed boundary inputs silently dropped, by reason",
	}, []string{"reason"})

	ProjectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streambridge_projection_duration_seconds",
		Help:    "Time spent building one view-model snapshot",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	EventsForwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streambridge_events_forwarded_total",
		Help: "Total number of runtime events forwarded to the notification sink",
	})

	EventBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streambridge_event_buffer_depth",
		Help: "Number of runtime events waiting in the bounded event buffer",
	})

	AnalyticsDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streambridge_analytics_drops_total",
		Help: "Total number of analytics records dropped because the emitter buffer was full",
	})
)

// IncBoundaryDrop records one silently dropped boundary input.
func IncBoundaryDrop(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BoundaryDropsTotal.WithLabelValues(reason).Inc()
}

// IncDispatch records one routed command.
func IncDispatch(action, routing string) {
	if action == "" {
		action = "unknown"
	}
	DispatchTotal.WithLabelValues(action, routing).Inc()
}
