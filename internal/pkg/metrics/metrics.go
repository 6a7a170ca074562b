// Package metrics defines and registers all custom Prometheus metrics for the
// feed API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto; importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "feed"

// ── Post metrics ──────────────────────────────────────────────────────────────

// PostMutationsTotal counts successful post writes.
// Label:
//   - action: "create", "update" or "delete"
var PostMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "post_mutations_total",
		Help:      "Total number of posts created, updated or deleted.",
	},
	[]string{"action"},
)

// ── Realtime metrics ──────────────────────────────────────────────────────────

// BroadcastsTotal counts post events handed to the broadcaster.
// Label:
//   - result: "ok" or "error"
var BroadcastsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Total number of post change events published, by result.",
	},
	[]string{"result"},
)

// ListenersConnected tracks the number of open realtime connections.
var ListenersConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "listeners_connected",
		Help:      "Current number of connected realtime listeners.",
	},
)

// EventsDroppedTotal counts events skipped for a listener whose send buffer
// was full.
var EventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of events not delivered to slow listeners.",
	},
)

// ── Image cleanup metrics ─────────────────────────────────────────────────────

// ImageCleanupTotal counts image removals performed by the cleanup workers.
// Label:
//   - result: "ok" or "error"
var ImageCleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_cleanup_total",
		Help:      "Total number of image removals, by result.",
	},
	[]string{"result"},
)

// ImageCleanupQueueDepth tracks pending removals in each cleanup worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ImageCleanupQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "image_cleanup_queue_depth",
		Help:      "Current number of image removals pending in each cleanup worker channel.",
	},
	[]string{"worker_id"},
)

// ImageCleanupDuration measures how long a single image removal takes.
var ImageCleanupDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "image_cleanup_duration_seconds",
		Help:      "Duration of a single image removal.",
		Buckets:   prometheus.DefBuckets,
	},
)
