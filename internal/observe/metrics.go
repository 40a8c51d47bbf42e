// Package observe wires OpenTelemetry metrics for the engagement engine.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/MikeSquared-Agency/decoy"

var latencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30}

// Metrics holds every instrument the service records. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	TurnDuration        metric.Float64Histogram
	OracleDuration      metric.Float64Histogram
	OracleRequests      metric.Int64Counter
	StageFallbacks      metric.Int64Counter
	ScamDetections      metric.Int64Counter
	IntelligenceItems   metric.Int64Counter
	Reports             metric.Int64Counter
	SessionsCreated     metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.TurnDuration, err = m.Float64Histogram("decoy.turn.duration",
		metric.WithDescription("Wall time of one orchestration run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.OracleDuration, err = m.Float64Histogram("decoy.oracle.duration",
		metric.WithDescription("Latency of completion backend calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.OracleRequests, err = m.Int64Counter("decoy.oracle.requests",
		metric.WithDescription("Completion backend calls by backend, profile and status."),
	); err != nil {
		return nil, err
	}
	if met.StageFallbacks, err = m.Int64Counter("decoy.stage.fallbacks",
		metric.WithDescription("Stages that used their deterministic fallback."),
	); err != nil {
		return nil, err
	}
	if met.ScamDetections, err = m.Int64Counter("decoy.scam.detections",
		metric.WithDescription("Sessions newly classified as scams."),
	); err != nil {
		return nil, err
	}
	if met.IntelligenceItems, err = m.Int64Counter("decoy.intelligence.items",
		metric.WithDescription("New intelligence items by category."),
	); err != nil {
		return nil, err
	}
	if met.Reports, err = m.Int64Counter("decoy.reports",
		metric.WithDescription("Terminal report deliveries by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCreated, err = m.Int64Counter("decoy.sessions.created",
		metric.WithDescription("Sessions opened on first contact."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("decoy.http.request.duration",
		metric.WithDescription("HTTP request latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics builds instruments on the global meter provider once.
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

func (m *Metrics) RecordTurn(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordOracleRequest(ctx context.Context, backend, profile, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("profile", profile),
		attribute.String("status", status),
	)
	m.OracleRequests.Add(ctx, 1, attrs)
	m.OracleDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordFallback(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.StageFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *Metrics) RecordScamDetected(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.ScamDetections.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordIntelligence(ctx context.Context, category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.IntelligenceItems.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", category)))
}

func (m *Metrics) RecordReport(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Reports.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordSessionCreated(ctx context.Context, backend string) {
	if m == nil {
		return
	}
	m.SessionsCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}
