package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSymbolFilesTotal = "srcindex.symbol_files.total"
	metricReferencesTotal  = "srcindex.references.total"
	metricRevisionsTotal   = "srcindex.revisions.total"
	metricToolDuration     = "srcindex.tool.duration.seconds"

	attrOutcome = "outcome"
	attrTool    = "tool"
)

// toolBucketBoundaries covers 10ms to 5 minutes.
var toolBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// IndexMetrics holds OTel instruments for the indexing pipeline.
type IndexMetrics struct {
	symbolFiles  metric.Int64Counter
	references   metric.Int64Counter
	revisions    metric.Int64Counter
	toolDuration metric.Float64Histogram
}

// NewIndexMetrics creates index metric instruments from the given meter.
func NewIndexMetrics(mt metric.Meter) (*IndexMetrics, error) {
	b := newMetricBuilder(mt)

	im := &IndexMetrics{
		symbolFiles:  b.counter(metricSymbolFilesTotal, "Symbol files processed by outcome", "{file}"),
		references:   b.counter(metricReferencesTotal, "Workspace source references extracted", "{reference}"),
		revisions:    b.counter(metricRevisionsTotal, "Source files resolved to a depot revision", "{revision}"),
		toolDuration: b.histogram(metricToolDuration, "External tool run duration in seconds", "s", toolBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return im, nil
}

// RecordSymbolFile counts one processed symbol file.
// Safe to call on a nil receiver (no-op).
func (im *IndexMetrics) RecordSymbolFile(ctx context.Context, outcome string, references, revisions int) {
	if im == nil {
		return
	}

	im.symbolFiles.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
	im.references.Add(ctx, int64(references))
	im.revisions.Add(ctx, int64(revisions))
}

// RecordTool records how long one external tool run took.
// Safe to call on a nil receiver (no-op).
func (im *IndexMetrics) RecordTool(ctx context.Context, tool string, elapsed time.Duration) {
	if im == nil {
		return
	}

	im.toolDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String(attrTool, tool)))
}
