package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/srcindex/internal/observability"
)

func TestReportPanic_LogsJSONWithStack(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := observability.NewLogger(observability.Config{LogJSON: true, LogOutput: &buf, Mode: observability.ModeIndex})

	code := reportPanic(logger, "boom", []byte("goroutine 1 [running]:\nmain.run()"))
	assert.Equal(t, exitPanic, code)

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "Unhandled exception: boom", record["msg"])
	assert.Contains(t, record["stack"], "main.run()")
}

func TestReportPanic_Console(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(observability.NewConsoleHandler(&buf, &observability.ConsoleOptions{NoColor: true}))

	reportPanic(logger, "boom", []byte("trace"))
	assert.Contains(t, buf.String(), "Unhandled exception: boom")
}
