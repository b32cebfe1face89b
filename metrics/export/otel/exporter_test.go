package otel

import (
	"context"
	"sync"
	"testing"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot jwtAuth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() jwtAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := jwtAuth.MetricsSnapshot{
		Counters:   make(map[jwtAuth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[jwtAuth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("jwtauth-test")

	src := &fakeSource{
		snapshot: jwtAuth.MetricsSnapshot{
			Counters: map[jwtAuth.MetricID]uint64{
				jwtAuth.MetricConfirmationSent: 3,
			},
			Histograms: map[jwtAuth.MetricID][]uint64{
				jwtAuth.MetricResolveLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}

	if got := sumValue(t, rm, "jwtauth_confirmation_sent_total"); got != 3 {
		t.Fatalf("confirmation sent: got %d want 3", got)
	}
	if got := bucketValue(t, rm, "jwtauth_resolve_latency_seconds_bucket", "+Inf"); got != 8 {
		t.Fatalf("+Inf bucket: got %d want 8", got)
	}
	if got := bucketValue(t, rm, "jwtauth_resolve_latency_seconds_bucket", "0.005"); got != 1 {
		t.Fatalf("first bucket: got %d want 1", got)
	}
	if got := gaugeValue(t, rm, "jwtauth_resolve_latency_seconds_count"); got != 8 {
		t.Fatalf("sample count: got %d want 8", got)
	}
	if got := sumValue(t, rm, "jwtauth_audit_dropped_total"); got != 1 {
		t.Fatalf("audit dropped: got %d want 1", got)
	}

	for name, want := range map[string]string{
		"jwtauth_confirmation_sent_total":      "confirmation",
		"jwtauth_session_issued_total":         "session",
		"jwtauth_recovery_reset_success_total": "recovery",
		"jwtauth_persistence_failure_total":    "delivery",
	} {
		if got := sumFlow(t, rm, name); got != want {
			t.Fatalf("%s flow: got %q want %q", name, got, want)
		}
	}
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Metrics{}
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	sum, ok := findMetric(t, rm, name).Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 {
		t.Fatalf("metric %s is not a single-point int64 sum", name)
	}
	return sum.DataPoints[0].Value
}

func sumFlow(t *testing.T, rm metricdata.ResourceMetrics, name string) string {
	t.Helper()
	sum, ok := findMetric(t, rm, name).Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 {
		t.Fatalf("metric %s is not a single-point int64 sum", name)
	}
	v, ok := sum.DataPoints[0].Attributes.Value(FlowKey)
	if !ok {
		t.Fatalf("metric %s carries no flow attribute", name)
	}
	return v.AsString()
}

func bucketValue(t *testing.T, rm metricdata.ResourceMetrics, name, le string) int64 {
	t.Helper()
	g, ok := findMetric(t, rm, name).Data.(metricdata.Gauge[int64])
	if !ok {
		t.Fatalf("metric %s is not an int64 gauge", name)
	}
	for _, dp := range g.DataPoints {
		if v, ok := dp.Attributes.Value(BucketKey); ok && v.AsString() == le {
			return dp.Value
		}
	}
	t.Fatalf("metric %s has no bucket le=%s", name, le)
	return 0
}

func gaugeValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	g, ok := findMetric(t, rm, name).Data.(metricdata.Gauge[int64])
	if !ok || len(g.DataPoints) != 1 {
		t.Fatalf("metric %s is not a single-point int64 gauge", name)
	}
	return g.DataPoints[0].Value
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("jwtauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("jwtauth-test")

	src := &fakeSource{
		snapshot: jwtAuth.MetricsSnapshot{
			Counters: map[jwtAuth.MetricID]uint64{
				jwtAuth.MetricSessionIssued: 1,
			},
			Histograms: map[jwtAuth.MetricID][]uint64{
				jwtAuth.MetricResolveLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[jwtAuth.MetricSessionIssued] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
