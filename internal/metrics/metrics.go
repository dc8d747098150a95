// Package metrics exposes Prometheus instrumentation for the event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsIngested counts events accepted and persisted.
	EventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watcher_events_ingested_total",
		Help: "Number of hook events accepted and persisted.",
	})

	// ValidationRejections counts submissions rejected before persistence.
	ValidationRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watcher_events_rejected_total",
		Help: "Number of hook event submissions rejected by validation.",
	})

	// BroadcastFrames counts frames delivered to subscriber queues, by type.
	BroadcastFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watcher_broadcast_frames_total",
		Help: "Number of stream frames queued for delivery, by frame type.",
	}, []string{"type"})

	// SubscribersConnected tracks currently registered stream subscribers.
	SubscribersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watcher_stream_subscribers",
		Help: "Number of currently connected stream subscribers.",
	})

	// SubscribersDropped counts subscribers removed after delivery failures
	// or queue overflow.
	SubscribersDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watcher_stream_subscribers_dropped_total",
		Help: "Number of subscribers dropped after a delivery failure.",
	})

	// Enrichments counts completed enrichment attempts, by outcome.
	Enrichments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watcher_enrichments_total",
		Help: "Number of enrichment attempts, by outcome (ok, error, timeout, skipped).",
	}, []string{"outcome"})
)
