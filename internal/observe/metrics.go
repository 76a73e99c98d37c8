// Package observe provides the observability primitives of stumpscribe:
// OpenTelemetry metrics, tracing, trace-aware logging and the HTTP middleware
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exported to
// Prometheus by [InitProvider], so they can be scraped from /metrics. Tests
// should use [NewMetrics] with their own [metric.MeterProvider] instead of
// [DefaultMetrics] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/stumpscribe"

// Request outcomes recorded by [Metrics.RecordTranscription].
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// DownloadDuration tracks audio download plus WAV conversion.
	DownloadDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// CorrectionDuration tracks the correction pipeline.
	CorrectionDuration metric.Float64Histogram

	// LLMDuration tracks summary generation latency.
	LLMDuration metric.Float64Histogram

	// TranscriptionDuration tracks a whole transcription request.
	TranscriptionDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// TranscriptionRequests counts transcription requests. Use with attributes:
	//   attribute.String("channel", ...), attribute.String("status", ...)
	TranscriptionRequests metric.Int64Counter

	// Corrections counts substitutions applied. Use with attribute:
	//   attribute.String("method", ...)
	Corrections metric.Int64Counter

	// --- Gauges ---

	// ActiveJobs tracks transcriptions currently holding a job slot.
	ActiveJobs metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// jobBuckets are histogram boundaries (in seconds) for pipeline stages. A
// long speech takes many minutes on CPU-only inference.
var jobBuckets = []float64{
	0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400,
}

// httpBuckets are histogram boundaries (in seconds) for HTTP handlers.
var httpBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30, 300, 1200,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.DownloadDuration, "stumpscribe.download.duration", "Latency of audio download and WAV conversion."},
		{&met.STTDuration, "stumpscribe.stt.duration", "Latency of speech-to-text transcription."},
		{&met.CorrectionDuration, "stumpscribe.correction.duration", "Latency of the transcript correction passes."},
		{&met.LLMDuration, "stumpscribe.llm.duration", "Latency of summary generation."},
		{&met.TranscriptionDuration, "stumpscribe.transcription.duration", "Latency of a whole transcription request."},
	}
	for _, h := range histograms {
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(jobBuckets...),
		); err != nil {
			return nil, err
		}
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("stumpscribe.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("stumpscribe.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionRequests, err = m.Int64Counter("stumpscribe.transcription.requests",
		metric.WithDescription("Total transcription requests by channel and status."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("stumpscribe.corrections",
		metric.WithDescription("Total transcript substitutions by correction method."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveJobs, err = m.Int64UpDownCounter("stumpscribe.active_jobs",
		metric.WithDescription("Number of transcriptions currently running."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("stumpscribe.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpBuckets...),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request counter increment with the
// standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordTranscription records the outcome and total latency of one
// transcription request.
func (m *Metrics) RecordTranscription(ctx context.Context, channel, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("status", status),
	)
	m.TranscriptionRequests.Add(ctx, 1, attrs)
	m.TranscriptionDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordCorrections adds n substitutions made by method.
func (m *Metrics) RecordCorrections(ctx context.Context, method string, n int) {
	if n <= 0 {
		return
	}
	m.Corrections.Add(ctx, int64(n), metric.WithAttributes(attribute.String("method", method)))
}

// ObserveStage records d on the given stage histogram.
func ObserveStage(ctx context.Context, h metric.Float64Histogram, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
