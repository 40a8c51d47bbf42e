package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
			total += dp.Value
		}
	}
	return total
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFallback(ctx, "detect_scam")
	m.RecordFallback(ctx, "detect_scam")
	m.RecordFallback(ctx, "generate_reply")
	m.RecordIntelligence(ctx, "upi_ids", 2)
	m.RecordIntelligence(ctx, "upi_ids", 0)
	m.RecordReport(ctx, "ok")
	m.RecordScamDetected(ctx, "oracle")
	m.RecordSessionCreated(ctx, "memory")

	rm := collect(t, reader)

	if got := sumFor(t, rm, "decoy.stage.fallbacks", attribute.String("stage", "detect_scam")); got != 2 {
		t.Errorf("detect_scam fallbacks = %d, want 2", got)
	}
	if got := sumFor(t, rm, "decoy.intelligence.items", attribute.String("category", "upi_ids")); got != 2 {
		t.Errorf("upi items = %d, want 2", got)
	}
	if got := sumFor(t, rm, "decoy.reports", attribute.String("status", "ok")); got != 1 {
		t.Errorf("reports = %d, want 1", got)
	}
	if got := sumFor(t, rm, "decoy.scam.detections", attribute.String("source", "oracle")); got != 1 {
		t.Errorf("detections = %d, want 1", got)
	}
	if got := sumFor(t, rm, "decoy.sessions.created", attribute.String("backend", "memory")); got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}
}

func TestOracleRequestRecordsCounterAndHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOracleRequest(ctx, "openai", "detection", "ok", 120*time.Millisecond)
	m.RecordOracleRequest(ctx, "openai", "detection", "error", 20*time.Millisecond)

	rm := collect(t, reader)

	if got := sumFor(t, rm, "decoy.oracle.requests", attribute.String("status", "error")); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
	met := findMetric(rm, "decoy.oracle.duration")
	if met == nil {
		t.Fatal("oracle duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("oracle duration is not a histogram")
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("histogram count = %d, want 2", count)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordTurn(ctx, "reply", time.Second)
	m.RecordFallback(ctx, "x")
	m.RecordReport(ctx, "ok")
	m.RecordOracleRequest(ctx, "a", "b", "c", time.Second)
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)

	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", w.Code)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "decoy.http.request.duration")
	if met == nil {
		t.Fatal("http duration metric not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(hist.DataPoints))
	}
	if v, _ := hist.DataPoints[0].Attributes.Value("status"); v.AsString() != "418" {
		t.Errorf("expected status 418 attribute, got %q", v.AsString())
	}
}
