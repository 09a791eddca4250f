package otel

import (
	"context"
	"sync"
	"testing"

	"github.com/MrEthical07/tokenslot"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot tokenslot.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() tokenslot.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := tokenslot.MetricsSnapshot{
		Counters:   make(map[tokenslot.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[tokenslot.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findSum(rm metricdata.ResourceMetrics, name string) (metricdata.Sum[int64], bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			return sum, ok
		}
	}
	return metricdata.Sum[int64]{}, false
}

func TestExporterCollectsLabelledFamilies(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		snapshot: tokenslot.MetricsSnapshot{
			Counters: map[tokenslot.MetricID]uint64{
				tokenslot.MetricAuthAccepted:     5,
				tokenslot.MetricAuthStaleSession: 2,
				tokenslot.MetricSessionIssued:    3,
			},
			Histograms: map[tokenslot.MetricID][]uint64{
				tokenslot.MetricAuthenticateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("tokenslot-test"), src)
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

	auth, ok := findSum(rm, "tokenslot_authenticate_total")
	if !ok {
		t.Fatal("expected tokenslot_authenticate_total sum")
	}
	byResult := map[string]int64{}
	for _, dp := range auth.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("result"))
		byResult[v.AsString()] = dp.Value
	}
	if byResult["accepted"] != 5 || byResult["stale_session"] != 2 || len(byResult) != 5 {
		t.Fatalf("unexpected authenticate datapoints %v", byResult)
	}

	issued, ok := findSum(rm, "tokenslot_sessions_issued_total")
	if !ok || len(issued.DataPoints) != 1 || issued.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected sessions issued %+v", issued)
	}
}

func TestExporterRejectsNilArgs(t *testing.T) {
	_, provider := newMeter()

	if _, err := NewOTelExporterFromSource(provider.Meter("tokenslot-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		snapshot: tokenslot.MetricsSnapshot{
			Counters: map[tokenslot.MetricID]uint64{
				tokenslot.MetricLoginSuccess: 1,
			},
			Histograms: map[tokenslot.MetricID][]uint64{},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("tokenslot-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[tokenslot.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
