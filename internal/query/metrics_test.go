package query

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitializeMetrics(t *testing.T) {
	t.Run("initializes all metric instruments successfully", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		if metrics.lookupsTotal == nil {
			t.Error("lookupsTotal is nil")
		}
		if metrics.fetchDuration == nil {
			t.Error("fetchDuration is nil")
		}
	})
}

func TestCacheRecordsMetrics(t *testing.T) {
	t.Run("records one miss, one join and one fetch for deduplicated subscribers", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		cache := New(WithMetrics(metrics))
		defer cache.Close()

		release := make(chan struct{})
		fetch := func(context.Context) (string, error) {
			<-release
			return "ok", nil
		}

		first := Subscribe(cache, "process", fetch)
		defer first.Unsubscribe()
		second := Subscribe(cache, "process", fetch)
		defer second.Unsubscribe()
		close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := second.Wait(ctx); err != nil {
			t.Fatalf("Wait() failed: %v", err)
		}

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(context.Background(), &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		outcomes := map[string]int64{}
		var fetches uint64
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch m.Name {
				case "query_cache_lookups_total":
					sum, ok := m.Data.(metricdata.Sum[int64])
					if !ok {
						t.Fatal("Expected Sum[int64] data type")
					}
					for _, dp := range sum.DataPoints {
						outcome, _ := dp.Attributes.Value("outcome")
						outcomes[outcome.AsString()] += dp.Value
					}
				case "query_fetch_duration_seconds":
					histogram, ok := m.Data.(metricdata.Histogram[float64])
					if !ok {
						t.Fatal("Expected Histogram[float64] data type")
					}
					for _, dp := range histogram.DataPoints {
						fetches += dp.Count
					}
				}
			}
		}

		if outcomes[LookupMiss] != 1 {
			t.Errorf("expected 1 miss, got %d", outcomes[LookupMiss])
		}
		if outcomes[LookupJoin] != 1 {
			t.Errorf("expected 1 join, got %d", outcomes[LookupJoin])
		}
		if fetches != 1 {
			t.Errorf("expected 1 recorded fetch, got %d", fetches)
		}
	})

	t.Run("parameterised keys are labelled by family", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		ctx := context.Background()
		for _, key := range []Key{"customerOrders:1", "customerOrders:2", "customerOrders:3"} {
			metrics.RecordLookup(ctx, key, LookupMiss)
			metrics.RecordFetch(ctx, key, 0.1, true)
		}

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			t.Fatalf("Failed to collect metrics: %v", err)
		}

		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				var sets []attribute.Set
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					for _, dp := range data.DataPoints {
						sets = append(sets, dp.Attributes)
					}
				case metricdata.Histogram[float64]:
					for _, dp := range data.DataPoints {
						sets = append(sets, dp.Attributes)
					}
				}
				if len(sets) != 1 {
					t.Errorf("%s: expected 1 series, got %d", m.Name, len(sets))
					continue
				}
				if key, _ := sets[0].Value("query.key"); key.AsString() != "customerOrders" {
					t.Errorf("%s: expected family label, got %q", m.Name, key.AsString())
				}
			}
		}
	})

	t.Run("nil metrics are ignored", func(t *testing.T) {
		var m *Metrics
		m.RecordLookup(context.Background(), "process", LookupHit)
		m.RecordFetch(context.Background(), "process", 0.1, true)
	})
}
