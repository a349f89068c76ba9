package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifygate_upstream_calls_total",
		Help: "Proxied Unify calls by endpoint family and resulting status",
	}, []string{"endpoint", "status"})

	UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unifygate_upstream_latency_seconds",
		Help:    "Latency of proxied Unify calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unifygate_request_latency_seconds",
		Help:    "Inbound request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})

	LiveConnectionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifygate_live_connections_total",
		Help: "Live connection URL requests by outcome",
	}, []string{"outcome"})

	FeedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unifygate_feed_events_total",
		Help: "Events published to the live feed",
	}, []string{"type"})

	FeedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unifygate_feed_dropped_total",
		Help: "Events discarded from full subscriber queues",
	})
)
