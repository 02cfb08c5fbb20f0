package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/aqoutlook/aqoutlook/internal/telemetry"

// Snapshot outcomes.
const (
	OutcomeFresh  = "fresh"
	OutcomeStale  = "stale"
	OutcomeFailed = "failed"
)

// PipelineMetrics holds instruments for upstream calls and snapshot production.
// A nil *PipelineMetrics records nothing.
type PipelineMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	snapshotTotal   metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
}

// NewPipelineMetrics creates the instruments on the global meter provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	snapshotTotal, err := meter.Int64Counter(
		"aq.snapshot.total",
		metric.WithDescription("Current-conditions snapshots by outcome"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"aq.cache.hit",
		metric.WithDescription("Snapshot cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"aq.cache.miss",
		metric.WithDescription("Snapshot cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		snapshotTotal:   snapshotTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
	}, nil
}

// RecordRequest records one upstream call.
func (m *PipelineMetrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Metrics outlive the request context.
	ctx := context.TODO()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSnapshot records how a snapshot request ended.
func (m *PipelineMetrics) RecordSnapshot(city, outcome string) {
	if m == nil {
		return
	}
	m.snapshotTotal.Add(context.TODO(), 1, metric.WithAttributes(
		attribute.String("city", city),
		attribute.String("outcome", outcome),
	))
}

// RecordCacheHit records a cache lookup that found an entry.
func (m *PipelineMetrics) RecordCacheHit(backend string) {
	if m == nil {
		return
	}
	m.cacheHit.Add(context.TODO(), 1, metric.WithAttributes(attribute.String("cache.backend", backend)))
}

// RecordCacheMiss records a cache lookup that found nothing.
func (m *PipelineMetrics) RecordCacheMiss(backend string) {
	if m == nil {
		return
	}
	m.cacheMiss.Add(context.TODO(), 1, metric.WithAttributes(attribute.String("cache.backend", backend)))
}
