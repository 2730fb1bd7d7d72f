package metrics

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader sdkmetric.Reader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return rm
}

func sum(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				return 0, false
			}
			var total int64
			for _, dp := range data.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	rec, err := NewWithReader(reader, "pleasant", "test")
	if err != nil {
		t.Fatalf("NewWithReader() error = %v", err)
	}
	defer rec.Close(ctx)

	rec.Pass(ctx, 3*time.Millisecond)
	rec.Pass(ctx, 5*time.Millisecond)
	rec.Resolved(ctx, "direct", true)
	rec.Resolved(ctx, "environment", false)
	rec.Resolved(ctx, "variable", true)
	rec.Written(ctx, "color")
	rec.SheetSkipped(ctx)

	rm := collect(t, reader)
	tests := []struct {
		name string
		want int64
	}{
		{"pleasant_passes_total", 2},
		{"pleasant_resolutions_total", 3},
		{"pleasant_writes_total", 1},
		{"pleasant_skipped_sheets_total", 1},
	}
	for _, tt := range tests {
		got, ok := sum(rm, tt.name)
		if !ok {
			t.Errorf("counter %s was not collected", tt.name)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, got, tt.want)
		}
	}

	if v, ok := rm.Resource.Set().Value("service.name"); !ok || v.AsString() != "pleasant" {
		t.Errorf("service.name = %v", v)
	}
}

func TestRecorder_ResolutionAttributes(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	rec, err := NewWithReader(reader, "pleasant", "test")
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close(ctx)

	rec.Resolved(ctx, "direct", true)
	rec.Resolved(ctx, "direct", true)
	rec.Resolved(ctx, "direct", false)

	rm := collect(t, reader)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "pleasant_resolutions_total" {
				continue
			}
			points := m.Data.(metricdata.Sum[int64]).DataPoints
			if len(points) != 2 {
				t.Errorf("expected separate series per outcome, got %d", len(points))
			}
			return
		}
	}
	t.Error("resolutions were not collected")
}

func TestRecorder_Nil(t *testing.T) {
	var rec *Recorder
	ctx := context.Background()

	rec.Pass(ctx, time.Second)
	rec.Resolved(ctx, "direct", true)
	rec.Written(ctx, "color")
	rec.SheetSkipped(ctx)
	if err := rec.Close(ctx); err != nil {
		t.Errorf("Close() on nil recorder = %v", err)
	}
}

func TestNew_WithoutEndpoint(t *testing.T) {
	rec, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rec.Pass(context.Background(), time.Millisecond)
	if err := rec.Close(context.Background()); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
