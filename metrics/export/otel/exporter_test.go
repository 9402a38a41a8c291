package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/hwsiew/woosession"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot woosession.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() woosession.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := woosession.MetricsSnapshot{
		Counters:   make(map[woosession.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[woosession.MetricID][]uint64, len(f.snapshot.Histograms)),
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
	meter := provider.Meter("woosession-test")

	src := &fakeSource{
		snapshot: woosession.MetricsSnapshot{
			Counters: map[woosession.MetricID]uint64{
				woosession.MetricCartAddItem: 3,
			},
			Histograms: map[woosession.MetricID][]uint64{
				woosession.MetricOperationLatency: {1, 1, 1, 1, 1, 1, 1, 1},
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
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("woosession-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("woosession-test")

	src := &fakeSource{
		snapshot: woosession.MetricsSnapshot{
			Counters: map[woosession.MetricID]uint64{
				woosession.MetricCartAddItem: 1,
			},
			Histograms: map[woosession.MetricID][]uint64{
				woosession.MetricOperationLatency: {1, 0, 0, 0, 0, 0, 0, 0},
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
			src.snapshot.Counters[woosession.MetricCartAddItem] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}

func TestExporterObservesEngineCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("woosession-test")

	cfg := woosession.DefaultConfig()
	cfg.Token.Secret = []byte("otel-test-secret")
	cfg.Token.Issuer = "https://shop.example"
	engine, err := woosession.New().
		WithConfig(cfg).
		WithMetricsEnabled(true).
		WithCatalog(woosession.NewStaticCatalog(woosession.Product{ID: 7, Name: "Cap", Price: 900, InStock: true})).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	resp := engine.Execute(context.Background(), woosession.Request{
		Operation: woosession.OpAddToCart,
		Variables: []byte(`{"productId":7,"quantity":1}`),
	})
	if len(resp.Errors) != 0 {
		t.Fatalf("addToCart errors: %+v", resp.Errors)
	}

	exp, err := NewOTelExporter(meter, engine)
	if err != nil {
		t.Fatalf("NewOTelExporter: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	addToCart := attribute.String("operation", woosession.OpAddToCart)
	if got := counterValue(rm, "woosession_cart_operations_total", &addToCart); got != 1 {
		t.Fatalf("cart_operations{addToCart} = %d, want 1", got)
	}
	if got := counterValue(rm, "woosession_session_established_total", nil); got != 1 {
		t.Fatalf("session_established = %d, want 1", got)
	}
}

func TestExporterReportsLabelledFamiliesAndBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("woosession-test")

	src := &fakeSource{
		snapshot: woosession.MetricsSnapshot{
			Counters: map[woosession.MetricID]uint64{
				woosession.MetricSessionRejectedSignature: 4,
				woosession.MetricCartApplyCoupon:          2,
			},
			Histograms: map[woosession.MetricID][]uint64{
				woosession.MetricOperationLatency: {2, 1, 0, 0, 0, 0, 0, 1},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	signature := attribute.String("reason", "signature")
	if got := counterValue(rm, "woosession_session_rejected_total", &signature); got != 4 {
		t.Fatalf("rejected{signature} = %d, want 4", got)
	}
	coupon := attribute.String("operation", woosession.OpApplyCoupon)
	if got := counterValue(rm, "woosession_cart_operations_total", &coupon); got != 2 {
		t.Fatalf("cart_operations{applyCoupon} = %d, want 2", got)
	}

	buckets := gaugePoints(rm, "woosession_cart_operation_duration_seconds_bucket")
	if len(buckets) != 8 {
		t.Fatalf("bucket points = %d, want 8", len(buckets))
	}
	if buckets["0.01"] != 3 || buckets["+Inf"] != 4 {
		t.Fatalf("unexpected cumulative buckets %v", buckets)
	}
}

// counterValue returns the data point of the named sum matching attr, or the only
// unattributed point when attr is nil.
func counterValue(rm metricdata.ResourceMetrics, name string, attr *attribute.KeyValue) int64 {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return -1
			}
			for _, dp := range sum.DataPoints {
				if attr == nil && dp.Attributes.Len() == 0 {
					return dp.Value
				}
				if attr != nil {
					if v, ok := dp.Attributes.Value(attr.Key); ok && v.Emit() == attr.Value.Emit() {
						return dp.Value
					}
				}
			}
		}
	}
	return -1
}

func gaugePoints(rm metricdata.ResourceMetrics, name string) map[string]int64 {
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				continue
			}
			for _, dp := range gauge.DataPoints {
				le, _ := dp.Attributes.Value("le")
				out[le.AsString()] = dp.Value
			}
		}
	}
	return out
}
