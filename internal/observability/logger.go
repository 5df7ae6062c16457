package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID    = "trace_id"
	attrSpanID     = "span_id"
	attrService    = "service"
	attrMode       = "mode"
	attrSymbolFile = "symbol_file"
)

type symbolFileKey struct{}

// WithSymbolFile marks ctx as belonging to the indexing of symbolFile. Records
// logged with ctx carry a symbol_file attribute, so extractor, resolver and
// injector lines of one file can be grouped in JSON output.
func WithSymbolFile(ctx context.Context, symbolFile string) context.Context {
	return context.WithValue(ctx, symbolFileKey{}, symbolFile)
}

// SymbolFileFrom returns the symbol file set by WithSymbolFile.
func SymbolFileFrom(ctx context.Context) (string, bool) {
	symbolFile, ok := ctx.Value(symbolFileKey{}).(string)

	return symbolFile, ok && symbolFile != ""
}

// TracingHandler is the [slog.Handler] behind every srcindex logger. It tags
// records with the service and command mode, the symbol file being indexed
// and the trace_id and span_id of the per-file span. The console handler
// hides these keys; the JSON handler keeps them.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner. Service and mode are attached once, outside any group.
func NewTracingHandler(inner slog.Handler, service string, appMode AppMode) *TracingHandler {
	return &TracingHandler{
		inner: inner.WithAttrs([]slog.Attr{
			slog.String(attrService, service),
			slog.String(attrMode, string(appMode)),
		}),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds the symbol file and span context carried by ctx, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if symbolFile, ok := SymbolFileFrom(ctx); ok {
		record.AddAttrs(slog.String(attrSymbolFile, symbolFile))
	}

	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs adds attrs to the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup opens a group on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
