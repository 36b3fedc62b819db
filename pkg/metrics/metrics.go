// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for the CoAP
// endpoint server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server.
type Metrics struct {
	// Message metrics
	MessagesTotal  *prometheus.CounterVec
	ParseErrors    *prometheus.CounterVec
	BuildErrors    prometheus.Counter
	RequestSize    prometheus.Histogram
	ResponseSize   prometheus.Histogram

	// Routing metrics
	RoutedTotal    *prometheus.CounterVec
	ResponsesTotal *prometheus.CounterVec
	HandlerErrors  *prometheus.CounterVec

	// Transport metrics
	DroppedDatagrams *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
	ActivePeers      prometheus.Gauge
	PeersTotal       prometheus.Counter

	// Resource metrics
	GoroutinesActive *prometheus.GaugeVec
	MemoryAllocated  *prometheus.GaugeVec
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mcoap"
	}

	return &Metrics{
		MessagesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Total number of CoAP messages parsed",
			},
			[]string{"type", "code"},
		),
		ParseErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Total number of datagrams that failed to parse",
			},
			[]string{"kind"},
		),
		BuildErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "build_errors_total",
				Help:      "Total number of responses that failed to encode",
			},
		),
		RequestSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_size_bytes",
				Help:      "Incoming datagram size in bytes",
				Buckets:   []float64{16, 64, 128, 256, 512, 1024, 1500, 8192, 65535},
			},
		),
		ResponseSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_size_bytes",
				Help:      "Outgoing datagram size in bytes",
				Buckets:   []float64{16, 64, 128, 256, 512, 1024, 1500, 8192, 65535},
			},
		),
		RoutedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routed_requests_total",
				Help:      "Total number of routed requests by outcome",
			},
			[]string{"outcome"},
		),
		ResponsesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Total number of responses sent by code class",
			},
			[]string{"class"},
		),
		HandlerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_errors_total",
				Help:      "Total number of endpoint handler failures",
			},
			[]string{"method"},
		),
		DroppedDatagrams: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_datagrams_total",
				Help:      "Total number of datagrams dropped before a response",
			},
			[]string{"reason"},
		),
		RateLimited: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_datagrams_total",
				Help:      "Total number of rate limited datagrams",
			},
			[]string{"limiter_type"},
		),
		ActivePeers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_peers",
				Help:      "Number of currently tracked peers",
			},
		),
		PeersTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "peers_total",
				Help:      "Total number of peers seen",
			},
		),
		GoroutinesActive: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines_active",
				Help:      "Number of active goroutines by component",
			},
			[]string{"component"},
		),
		MemoryAllocated: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_allocated_bytes",
				Help:      "Memory allocated in bytes",
			},
			[]string{"type"},
		),
	}
}
