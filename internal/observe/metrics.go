// Package observe provides application-wide observability primitives for
// the decoder: OpenTelemetry metrics with a Prometheus exporter bridge so
// a batch run's counters can still be scraped via the standard /metrics
// endpoint if one is exposed.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all decoder metrics.
const meterName = "github.com/zsrkmyn/phondecode"

// Metrics holds all OpenTelemetry metric instruments the decoder records.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// DecodeDuration tracks per-utterance Viterbi decode latency.
	DecodeDuration metric.Float64Histogram

	// LikelihoodDuration tracks per-utterance likelihood computation
	// latency.
	LikelihoodDuration metric.Float64Histogram

	// UtterancesProcessed counts utterances decoded, by status
	// ("ok"/"failed"). Use with attribute.String("status", ...).
	UtterancesProcessed metric.Int64Counter

	// FramesDecoded counts total acoustic frames decoded across all
	// utterances.
	FramesDecoded metric.Int64Counter

	// ViterbiUnderflows counts frames where every incoming path scored
	// -Inf (see pkg/decode's failure semantics).
	ViterbiUnderflows metric.Int64Counter

	// ActiveWorkers tracks the number of utterances currently being
	// decoded concurrently.
	ActiveWorkers metric.Int64UpDownCounter
}

// durationBuckets defines histogram bucket boundaries (in seconds)
// appropriate for per-utterance decode latencies.
var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DecodeDuration, err = m.Float64Histogram("phondecode.decode.duration",
		metric.WithDescription("Latency of Viterbi decoding per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LikelihoodDuration, err = m.Float64Histogram("phondecode.likelihood.duration",
		metric.WithDescription("Latency of per-frame log-likelihood computation per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtterancesProcessed, err = m.Int64Counter("phondecode.utterances.processed",
		metric.WithDescription("Total utterances processed by outcome status."),
	); err != nil {
		return nil, err
	}
	if met.FramesDecoded, err = m.Int64Counter("phondecode.frames.decoded",
		metric.WithDescription("Total acoustic frames decoded across all utterances."),
	); err != nil {
		return nil, err
	}
	if met.ViterbiUnderflows, err = m.Int64Counter("phondecode.viterbi.underflows",
		metric.WithDescription("Frames where every incoming Viterbi path scored -Inf."),
	); err != nil {
		return nil, err
	}
	if met.ActiveWorkers, err = m.Int64UpDownCounter("phondecode.active_workers",
		metric.WithDescription("Number of utterances currently being decoded concurrently."),
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
// same pointer. Panics if instrument creation fails (should not happen
// with the global provider).
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

// RecordUtterance is a convenience method that records an utterance
// outcome counter increment.
func (m *Metrics) RecordUtterance(ctx context.Context, status string) {
	m.UtterancesProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
