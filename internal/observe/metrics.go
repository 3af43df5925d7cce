// Package observe provides application-wide observability primitives for
// voxstream: OpenTelemetry metrics, tracing, structured logging, and HTTP
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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxstream metrics.
const meterName = "github.com/voxstream/voxstream"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ASRDuration tracks speech-to-text inference latency. Use with
	// attribute.String("engine", ...).
	ASRDuration metric.Float64Histogram

	// ChunkDuration tracks end-to-end per-chunk pipeline latency (latency
	// sleep + VAD + inference + endpointing decision).
	ChunkDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// AudioBytes counts PCM bytes accepted across all sessions.
	AudioBytes metric.Int64Counter

	// Transcripts counts emitted results. Use with
	// attribute.String("kind", "partial"|"silence_partial"|"final").
	Transcripts metric.Int64Counter

	// StreamErrors counts protocol and backend errors sent to clients.
	// Use with attribute.String("code", ...).
	StreamErrors metric.Int64Counter

	// SessionsReaped counts sessions closed by the background reaper.
	// Use with attribute.String("reason", "orphaned"|"no_speech"|"idle").
	SessionsReaped metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of admitted, not-yet-closed sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for streaming-transcription latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ASRDuration, err = m.Float64Histogram("voxstream.asr.duration",
		metric.WithDescription("Latency of speech-to-text inference."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunkDuration, err = m.Float64Histogram("voxstream.chunk.duration",
		metric.WithDescription("End-to-end per-chunk pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxstream.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.AudioBytes, err = m.Int64Counter("voxstream.audio.bytes",
		metric.WithDescription("Total PCM audio bytes accepted."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("voxstream.transcripts",
		metric.WithDescription("Total emitted results by kind."),
	); err != nil {
		return nil, err
	}
	if met.StreamErrors, err = m.Int64Counter("voxstream.stream.errors",
		metric.WithDescription("Total error messages sent to clients by code."),
	); err != nil {
		return nil, err
	}
	if met.SessionsReaped, err = m.Int64Counter("voxstream.sessions.reaped",
		metric.WithDescription("Total sessions closed by the reaper by reason."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("voxstream.active_sessions",
		metric.WithDescription("Number of admitted, not-yet-closed sessions."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordTranscript records one emitted result of the given kind.
func (m *Metrics) RecordTranscript(ctx context.Context, kind string) {
	m.Transcripts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordStreamError records one error message sent to a client.
func (m *Metrics) RecordStreamError(ctx context.Context, code string) {
	m.StreamErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("code", code)),
	)
}

// RecordReap records one reaper-initiated session close.
func (m *Metrics) RecordReap(ctx context.Context, reason string) {
	m.SessionsReaped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
