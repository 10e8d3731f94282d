// Package metrics exposes prometheus counters and histograms for the publisher core.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	pmMeasurementsPublished     prometheus.Counter
	pmPublishErrors             prometheus.Counter
	pmRoutingUpdatesApplied     prometheus.Counter
	pmTemporalFramesEmitted     prometheus.Counter
	pmSignalIndexCacheRebuilds  prometheus.Counter
	pmConnectedSubscribers      prometheus.Gauge
	pmPublishBatchSizes         prometheus.Histogram
	pmPublishFrameDurationMicro prometheus.Histogram
)

func init() {
	pmMeasurementsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "measurements_published_total",
		Help:      "The number of individual measurements published since program start",
	})

	pmPublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "publish_error_total",
		Help:      "The number of measurement batches that failed to deliver to a connection",
	})

	pmRoutingUpdatesApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "routing_updates_applied_total",
		Help:      "The number of routing table snapshot swaps applied since program start",
	})

	pmTemporalFramesEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "temporal_frames_emitted_total",
		Help:      "The number of historical replay frames emitted since program start",
	})

	pmSignalIndexCacheRebuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "signal_index_cache_rebuild_total",
		Help:      "The number of times a connection's signal index cache was replaced",
	})

	pmConnectedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "connected_subscribers",
		Help:      "The number of subscriber connections currently registered with the publisher",
	})

	pmPublishBatchSizes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "publish_batch_sizes",
		Help:      "The sizes of measurement batches handed to PublishMeasurements",
		Buckets:   prometheus.ExponentialBuckets(1, 4.0, 8),
	})

	pmPublishFrameDurationMicro = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sttp",
		Subsystem: "publisher",
		Name:      "publish_frame_duration_microseconds",
		Help:      "The duration of a single connection's PublishMeasurements call in microseconds",
	})

	prometheus.MustRegister(
		pmMeasurementsPublished,
		pmPublishErrors,
		pmRoutingUpdatesApplied,
		pmTemporalFramesEmitted,
		pmSignalIndexCacheRebuilds,
		pmConnectedSubscribers,
		pmPublishBatchSizes,
		pmPublishFrameDurationMicro,
	)
}

// MeasurementsPublished records n individual measurements as published.
func MeasurementsPublished(n int) {
	pmMeasurementsPublished.Add(float64(n))
}

// PublishError records a single failed batch delivery to a connection.
func PublishError() {
	pmPublishErrors.Inc()
}

// RoutingUpdateApplied records a single routing table snapshot swap.
func RoutingUpdateApplied() {
	pmRoutingUpdatesApplied.Inc()
}

// TemporalFrameEmitted records a single historical replay frame.
func TemporalFrameEmitted() {
	pmTemporalFramesEmitted.Inc()
}

// SignalIndexCacheRebuilt records a connection's signal index cache being replaced.
func SignalIndexCacheRebuilt() {
	pmSignalIndexCacheRebuilds.Inc()
}

// SetConnectedSubscribers reports the current number of registered subscriber connections.
func SetConnectedSubscribers(count int) {
	pmConnectedSubscribers.Set(float64(count))
}

// ObservePublishBatchSize records the size of a measurement batch handed to PublishMeasurements.
func ObservePublishBatchSize(size int) {
	pmPublishBatchSizes.Observe(float64(size))
}

// ObservePublishFrameDurationMicro records the duration, in microseconds, of a single
// connection's PublishMeasurements call.
func ObservePublishFrameDurationMicro(microseconds float64) {
	pmPublishFrameDurationMicro.Observe(microseconds)
}
