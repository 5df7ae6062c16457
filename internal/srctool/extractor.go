// Package srctool lists the source files a symbol file was compiled from.
package srctool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/srcindex/pkg/process"
)

// DefaultTimeout bounds a single extractor run.
const DefaultTimeout = 30 * time.Second

// recursiveFlag makes the extractor list every referenced source file.
const recursiveFlag = "-r"

// Extractor runs the external symbol-extractor tool against symbol files.
type Extractor struct {
	Runner  process.Runner
	Tool    string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewExtractor creates an extractor for the tool at path.
func NewExtractor(runner process.Runner, tool string, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{Runner: runner, Tool: tool, Timeout: DefaultTimeout, Logger: logger}
}

// Extract returns the source files referenced by symbolFile that live under workspaceRoot.
// A failed or empty extraction is not an error: intermediate symbol files carry
// no source information, so the result is simply empty.
func (e *Extractor) Extract(ctx context.Context, symbolFile, workspaceRoot string) []string {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	result := e.Runner.Run(ctx, process.Command{
		Executable: e.Tool,
		Dir:        ".",
		Args:       []string{symbolFile, recursiveFlag},
	}, timeout)

	if result.ExitCode <= 0 {
		e.Logger.WarnContext(ctx, "... SrcTool.exe execution failed on: "+symbolFile)
		e.Logger.WarnContext(ctx, fmt.Sprintf("... SrcTool.exe execution failed with exit code: %d", result.ExitCode),
			"error", result.Err)

		return []string{}
	}

	e.Logger.InfoContext(ctx, fmt.Sprintf("... found %d source files referenced in %s (%d lines captured)",
		result.ExitCode, symbolFile, result.LineCount()))

	captured := make([]string, 0, result.LineCount())
	for line := range result.Lines() {
		captured = append(captured, line)
	}

	local := LocalReferences(captured, result.ExitCode, workspaceRoot)

	e.Logger.InfoContext(ctx, fmt.Sprintf("... found %d local source files in %s", len(local), symbolFile))

	return local
}

// LocalReferences keeps the first count lines, then drops every path that does
// not start with root (compared case-insensitively). A non-positive count yields
// an empty list.
func LocalReferences(lines []string, count int, root string) []string {
	if count <= 0 {
		return []string{}
	}

	if len(lines) > count {
		lines = lines[:count]
	}

	local := make([]string, 0, len(lines))

	for _, line := range lines {
		if hasPrefixFold(line, root) {
			local = append(local, line)
		}
	}

	return local
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
