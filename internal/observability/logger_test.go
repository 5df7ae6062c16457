package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/srcindex/internal/observability"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "test-svc", observability.ModeIndex))

	logger.InfoContext(spanContext(t), "test message")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "test-svc", record["service"])
	assert.Equal(t, "index", record["mode"])
}

func TestTracingHandler_NoTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "srcindex", observability.ModeInspect))

	logger.InfoContext(context.Background(), "no span")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	_, hasTraceID := record["trace_id"]
	assert.False(t, hasTraceID)
	assert.Equal(t, "inspect", record["mode"])
}

func TestTracingHandler_TagsSymbolFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "srcindex", observability.ModeIndex))

	ctx := observability.WithSymbolFile(spanContext(t), `C:\out\game.pdb`)
	logger.InfoContext(ctx, "... found 3 local source files")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, `C:\out\game.pdb`, record["symbol_file"])
	assert.Equal(t, "0102030405060708", record["span_id"])

	symbolFile, ok := observability.SymbolFileFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, `C:\out\game.pdb`, symbolFile)

	_, ok = observability.SymbolFileFrom(context.Background())
	assert.False(t, ok)
}

func TestTracingHandler_WithGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(observability.NewTracingHandler(inner, "srcindex", observability.ModeIndex))

	logger.WithGroup("pdb").InfoContext(context.Background(), "indexed", slog.String("file", "game.pdb"))

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "srcindex", record["service"])

	group, ok := record["pdb"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "game.pdb", group["file"])
}

func newConsole(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	handler := observability.NewConsoleHandler(buf, &observability.ConsoleOptions{Level: level, NoColor: true})

	return slog.New(observability.NewTracingHandler(handler, "srcindex", observability.ModeIndex))
}

func TestConsoleHandler_Format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newConsole(&buf, slog.LevelInfo)
	ctx := context.Background()

	observability.Title(ctx, logger, "srcindex")
	logger.InfoContext(ctx, "... found 3 files in Perforce.")
	logger.WarnContext(ctx, "no source files", "file", `C:\out\game.pdb`)
	logger.ErrorContext(ctx, "inject failed", "code", -258)
	observability.Success(ctx, logger, "1 symbol files successfully indexed in 0.42 seconds.")
	logger.DebugContext(ctx, "hidden")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 5)

	stamp := `^\d\d:\d\d:\d\d: `
	assert.Regexp(t, stamp+`srcindex$`, lines[0])
	assert.Regexp(t, stamp+`\.\.\. found 3 files in Perforce\.$`, lines[1])
	assert.Regexp(t, stamp+`WARNING: no source files file=C:\\out\\game\.pdb$`, lines[2])
	assert.Regexp(t, stamp+`ERROR: inject failed code=-258$`, lines[3])
	assert.Regexp(t, stamp+`SUCCESS: 1 symbol files`, lines[4])
}

func TestConsoleHandler_HidesMetadataAndTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := observability.WithSymbolFile(spanContext(t), "game.pdb")
	newConsole(&buf, slog.LevelInfo).InfoContext(ctx, "plain")

	assert.NotContains(t, buf.String(), "service=")
	assert.NotContains(t, buf.String(), "trace_id=")
	assert.NotContains(t, buf.String(), "symbol_file=")
	assert.Contains(t, buf.String(), ": plain\n")
}

func TestConsoleHandler_DebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	newConsole(&buf, slog.LevelDebug).DebugContext(context.Background(), "spawning", "command", "srctool game.pdb -r")

	assert.Contains(t, buf.String(), `spawning command="srctool game.pdb -r"`)
}

func TestConsoleHandler_GroupsAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newConsole(&buf, slog.LevelInfo).With("run", 1).WithGroup("p4")
	logger.InfoContext(context.Background(), "batch", "size", 100, slog.Group("where", "n", 2))

	assert.Contains(t, buf.String(), "batch run=1 p4.size=100 p4.where.n=2")
}

func TestJSONLogger_NamesCustomLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogOutput = &buf

	observability.Success(context.Background(), observability.NewLogger(cfg), "done")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "SUCCESS", record["level"])
	assert.Equal(t, "srcindex", record["service"])
}
