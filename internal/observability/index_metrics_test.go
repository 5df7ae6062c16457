package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/srcindex/internal/observability"
)

func setupIndexMeter(t *testing.T) (*observability.IndexMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	im, err := observability.NewIndexMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return im, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key string) map[string]int64 {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	out := map[string]int64{}

	for _, dp := range sum.DataPoints {
		value, _ := dp.Attributes.Value(attribute.Key(key))
		out[value.AsString()] += dp.Value
	}

	return out
}

func TestIndexMetrics_RecordSymbolFile(t *testing.T) {
	t.Parallel()

	im, reader := setupIndexMeter(t)
	ctx := context.Background()

	im.RecordSymbolFile(ctx, "indexed", 10, 8)
	im.RecordSymbolFile(ctx, "indexed", 4, 4)
	im.RecordSymbolFile(ctx, "skipped", 0, 0)

	rm := collectMetrics(t, reader)

	assert.Equal(t, map[string]int64{"indexed": 2, "skipped": 1},
		sumByAttr(t, findMetric(rm, "srcindex.symbol_files.total"), "outcome"))
	assert.Equal(t, map[string]int64{"": 14}, sumByAttr(t, findMetric(rm, "srcindex.references.total"), "none"))
	assert.Equal(t, map[string]int64{"": 12}, sumByAttr(t, findMetric(rm, "srcindex.revisions.total"), "none"))
}

func TestIndexMetrics_RecordTool(t *testing.T) {
	t.Parallel()

	im, reader := setupIndexMeter(t)

	im.RecordTool(context.Background(), "srctool", 1500*time.Millisecond)
	im.RecordTool(context.Background(), "pdbstr", 200*time.Millisecond)

	m := findMetric(collectMetrics(t, reader), "srcindex.tool.duration.seconds")
	require.NotNil(t, m)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)
}

func TestIndexMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var im *observability.IndexMetrics

	assert.NotPanics(t, func() {
		im.RecordSymbolFile(context.Background(), "indexed", 1, 1)
		im.RecordTool(context.Background(), "srctool", time.Second)
	})
}
