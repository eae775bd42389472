package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
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

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
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

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestHistogramObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := []struct {
		name string
		h    metric.Float64Histogram
	}{
		{"aethervox.dispatch.duration", m.DispatchDuration},
		{"aethervox.synthesis.duration", m.SynthesisDuration},
		{"aethervox.transcode.duration", m.TranscodeDuration},
	}

	for _, tc := range histograms {
		tc.h.Record(ctx, 0.123)
		tc.h.Record(ctx, 0.456)
	}

	rm := collect(t, reader)

	for _, tc := range histograms {
		t.Run(tc.name, func(t *testing.T) {
			found := findMetric(rm, tc.name)
			if found == nil {
				t.Fatalf("metric %q not collected", tc.name)
			}
			hist, ok := found.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("metric %q is %T, want Histogram[float64]", tc.name, found.Data)
			}
			if len(hist.DataPoints) != 1 {
				t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("count = %d, want 2", got)
			}
		})
	}
}

func TestRecordDispatchAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDispatch(ctx, "talk", "hit")
	m.RecordDispatch(ctx, "talk", "hit")
	m.RecordDispatch(ctx, "bubble", "suppressed")

	rm := collect(t, reader)
	found := findMetric(rm, "aethervox.dispatches")
	if found == nil {
		t.Fatal("dispatches metric not collected")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("dispatches is %T, want Sum[int64]", found.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Fatalf("attribute sets = %d, want 2", len(sum.DataPoints))
	}

	want := attribute.NewSet(
		attribute.String("channel", "talk"),
		attribute.String("outcome", "hit"),
	)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) && dp.Value != 2 {
			t.Errorf("talk/hit count = %d, want 2", dp.Value)
		}
	}
}

func TestUpDownCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveTracks.Add(ctx, 3)
	m.ActiveTracks.Add(ctx, -1)
	m.QueuedMessages.Add(ctx, 5)
	m.QueuedMessages.Add(ctx, -5)

	rm := collect(t, reader)

	tracks := findMetric(rm, "aethervox.active_tracks")
	if tracks == nil {
		t.Fatal("active_tracks not collected")
	}
	if sum := tracks.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 2 {
		t.Errorf("active tracks = %d, want 2", sum.DataPoints[0].Value)
	}

	queued := findMetric(rm, "aethervox.queued_messages")
	if queued == nil {
		t.Fatal("queued_messages not collected")
	}
	if sum := queued.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 0 {
		t.Errorf("queued messages = %d, want 0", sum.DataPoints[0].Value)
	}
}

func TestDefaultMetricsSingleton(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different instances")
	}
}
