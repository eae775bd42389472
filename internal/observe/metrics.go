// Package observe provides application-wide observability primitives for
// aethervox: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all aethervox metrics.
const meterName = "github.com/kvxd/aethervox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DispatchDuration tracks end-to-end dispatch latency, from raw event
	// to enqueue (or drop).
	DispatchDuration metric.Float64Histogram

	// SynthesisDuration tracks speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// TranscodeDuration tracks filter-graph transcode latency.
	TranscodeDuration metric.Float64Histogram

	// --- Counters ---

	// Dispatches counts dialogue dispatches. Use with attributes:
	//   attribute.String("channel", ...), attribute.String("outcome", ...)
	// Outcomes: "hit", "synthesized", "suppressed", "ignored", "blocked",
	// "empty".
	Dispatches metric.Int64Counter

	// Reports counts diagnostic reports emitted for unvoiced lines. Use
	// with attribute: attribute.String("sink", ...).
	Reports metric.Int64Counter

	// SynthesisErrors counts failed synthesis attempts. Use with attribute:
	//   attribute.String("backend", ...)
	SynthesisErrors metric.Int64Counter

	// QueueTimeouts counts messages dropped by the queue wait timeout. Use
	// with attribute: attribute.String("channel", ...).
	QueueTimeouts metric.Int64Counter

	// --- Gauges ---

	// ActiveTracks tracks the number of currently mixed playback tracks.
	ActiveTracks metric.Int64UpDownCounter

	// QueuedMessages tracks the number of messages waiting across all
	// channel queues.
	QueuedMessages metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for dispatch and synthesis latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DispatchDuration, err = m.Float64Histogram("aethervox.dispatch.duration",
		metric.WithDescription("Latency of one dialogue dispatch from raw event to enqueue."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("aethervox.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscodeDuration, err = m.Float64Histogram("aethervox.transcode.duration",
		metric.WithDescription("Latency of filter-graph transcoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Dispatches, err = m.Int64Counter("aethervox.dispatches",
		metric.WithDescription("Total dialogue dispatches by channel and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Reports, err = m.Int64Counter("aethervox.reports",
		metric.WithDescription("Total diagnostic reports emitted by sink."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("aethervox.synthesis.errors",
		metric.WithDescription("Total failed synthesis attempts by backend."),
	); err != nil {
		return nil, err
	}
	if met.QueueTimeouts, err = m.Int64Counter("aethervox.queue.timeouts",
		metric.WithDescription("Total messages dropped by the queue wait timeout, by channel."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveTracks, err = m.Int64UpDownCounter("aethervox.active_tracks",
		metric.WithDescription("Number of currently mixed playback tracks."),
	); err != nil {
		return nil, err
	}
	if met.QueuedMessages, err = m.Int64UpDownCounter("aethervox.queued_messages",
		metric.WithDescription("Number of messages waiting across all channel queues."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("aethervox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordDispatch records one dispatch outcome with the standard attribute
// set.
func (m *Metrics) RecordDispatch(ctx context.Context, channel, outcome string) {
	m.Dispatches.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", channel),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordDispatchDuration records the end-to-end latency of one dispatch.
func (m *Metrics) RecordDispatchDuration(ctx context.Context, channel string, d time.Duration) {
	m.DispatchDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("channel", channel)),
	)
}

// RecordSynthesisDuration records the latency of one synthesis call.
func (m *Metrics) RecordSynthesisDuration(ctx context.Context, backend string, d time.Duration) {
	m.SynthesisDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}

// RecordTranscodeDuration records the latency of one transcode call.
func (m *Metrics) RecordTranscodeDuration(ctx context.Context, d time.Duration) {
	m.TranscodeDuration.Record(ctx, d.Seconds())
}

// RecordReport records one emitted diagnostic report.
func (m *Metrics) RecordReport(ctx context.Context, sink string) {
	m.Reports.Add(ctx, 1,
		metric.WithAttributes(attribute.String("sink", sink)),
	)
}

// RecordSynthesisError records one failed synthesis attempt.
func (m *Metrics) RecordSynthesisError(ctx context.Context, backend string) {
	m.SynthesisErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}

// RecordQueueTimeout records one message dropped by the wait timeout.
func (m *Metrics) RecordQueueTimeout(ctx context.Context, channel string) {
	m.QueueTimeouts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("channel", channel)),
	)
}
