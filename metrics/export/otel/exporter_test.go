package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/wboard/connector"
	"github.com/wboard/connector/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot connector.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() connector.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := connector.MetricsSnapshot{
		Counters:   make(map[connector.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[connector.MetricID][]uint64, len(f.snapshot.Histograms)),
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

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) == 0 {
		t.Fatal("expected collected metrics, got none")
	}
	return rm
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("wboard-test")

	src := &fakeSource{
		snapshot: connector.MetricsSnapshot{
			Counters: map[connector.MetricID]uint64{
				connector.MetricVerifySuccess:          3,
				connector.MetricVerifyInvalidSignature: 2,
				connector.MetricAutologinRedeemed:      4,
				connector.MetricSecretRotated:          1,
			},
			Histograms: map[connector.MetricID][]uint64{
				connector.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	rm := collect(t, reader)

	if got := int64Value(t, rm, VerifyRequestsName, attribute.String("outcome", "success")); got != 3 {
		t.Fatalf("expected verify success 3, got %d", got)
	}
	if got := int64Value(t, rm, VerifyRequestsName, attribute.String("outcome", "invalid_signature")); got != 2 {
		t.Fatalf("expected invalid signature 2, got %d", got)
	}
	if got := int64Value(t, rm, AutologinTokensName, attribute.String("event", "redeemed")); got != 4 {
		t.Fatalf("expected redeemed 4, got %d", got)
	}
	if got := int64Value(t, rm, SecretRotationsName); got != 1 {
		t.Fatalf("expected rotations 1, got %d", got)
	}
	if got := int64Value(t, rm, VerifyLatencyName+".buckets", attribute.String("le", "0.005")); got != 1 {
		t.Fatalf("expected first bucket 1, got %d", got)
	}
	if got := int64Value(t, rm, VerifyLatencyName+".buckets", attribute.String("le", "+Inf")); got != 8 {
		t.Fatalf("expected +Inf bucket 8, got %d", got)
	}
	if got := int64Value(t, rm, VerifyLatencyName+".count"); got != 8 {
		t.Fatalf("expected latency count 8, got %d", got)
	}
	if got := int64Value(t, rm, AuditDroppedName); got != 1 {
		t.Fatalf("expected audit dropped 1, got %d", got)
	}
}

func TestExporterCoversEveryEngineCounter(t *testing.T) {
	seen := make(map[connector.MetricID]int, len(counterSeries))
	series := make(map[string]bool, len(counterSeries))
	for _, s := range counterSeries {
		seen[s.id]++
		key := s.instrument + "/" + s.key + "=" + s.value
		if series[key] {
			t.Fatalf("series %s is mapped twice", key)
		}
		series[key] = true
	}
	for _, def := range internaldefs.CounterDefs {
		if seen[def.ID] != 1 {
			t.Fatalf("counter %s mapped %d times, want 1", def.Name, seen[def.ID])
		}
	}
	if len(counterSeries) != len(internaldefs.CounterDefs) {
		t.Fatalf("expected %d series, got %d", len(internaldefs.CounterDefs), len(counterSeries))
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	counters := make(map[connector.MetricID]uint64, len(internaldefs.CounterDefs))
	for i, def := range internaldefs.CounterDefs {
		counters[def.ID] = uint64(i + 1)
	}
	exp, err := NewExporterFromSource(provider.Meter("wboard-test"), &fakeSource{
		snapshot: connector.MetricsSnapshot{Counters: counters},
	})
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	rm := collect(t, reader)
	for _, s := range counterSeries {
		var attrs []attribute.KeyValue
		if s.key != "" {
			attrs = append(attrs, attribute.String(s.key, s.value))
		}
		if got := int64Value(t, rm, s.instrument, attrs...); got != int64(counters[s.id]) {
			t.Fatalf("series %s %s=%s: expected %d, got %d", s.instrument, s.key, s.value, counters[s.id], got)
		}
	}
}

// int64Value returns the data point of name whose attribute set is exactly
// attrs.
func int64Value(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()

	want := attribute.NewSet(attrs...)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			default:
				t.Fatalf("metric %s has unexpected data type %T", name, m.Data)
			}
			for _, p := range points {
				if p.Attributes.Equals(&want) {
					return p.Value
				}
			}
			t.Fatalf("metric %s has no point with attributes %v", name, attrs)
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}

func TestExporterRejectsNilSource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("wboard-test")

	if _, err := NewExporterFromSource(meter, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("wboard-test")

	src := &fakeSource{
		snapshot: connector.MetricsSnapshot{
			Counters: map[connector.MetricID]uint64{
				connector.MetricVerifySuccess: 1,
			},
			Histograms: map[connector.MetricID][]uint64{
				connector.MetricVerifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewExporterFromSource failed: %v", err)
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
			src.snapshot.Counters[connector.MetricVerifySuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
