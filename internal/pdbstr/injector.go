// Package pdbstr merges source index streams into symbol files and reads them back.
package pdbstr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/srcindex/internal/srcsrv"
	"github.com/Sumatoshi-tech/srcindex/pkg/process"
)

// DefaultTimeout bounds a single injector run.
const DefaultTimeout = 30 * time.Second

// Sentinel errors.
var (
	ErrInject   = errors.New("failed to inject source index stream")
	ErrRead     = errors.New("failed to read source index stream")
	ErrNoStream = errors.New("symbol file has no source index stream")
)

// Injector drives the external stream-injector tool.
type Injector struct {
	Runner  process.Runner
	Tool    string
	Timeout time.Duration

	// StreamExt is the extension of the sibling stream file; empty means srcsrv.DefaultTempExtension.
	StreamExt string

	// KeepStream leaves the sibling stream file on disk for inspection.
	KeepStream bool

	Logger *slog.Logger
}

// NewInjector creates an injector for the tool at path.
func NewInjector(runner process.Runner, tool string, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Injector{Runner: runner, Tool: tool, Timeout: DefaultTimeout, Logger: logger}
}

// Inject writes the sibling stream of symbolFile into its srcsrv stream,
// replacing any existing one. Any non-negative exit code is success.
func (i *Injector) Inject(ctx context.Context, symbolFile string) error {
	streamFile := srcsrv.TempPath(symbolFile, i.StreamExt)

	i.Logger.InfoContext(ctx, fmt.Sprintf("... injecting %s into %s", streamFile, symbolFile))

	defer i.cleanup(ctx, streamFile)

	result := i.Runner.Run(ctx, process.Command{
		Executable: i.Tool,
		Dir:        ".",
		Args:       []string{"-w", "-s:" + srcsrv.StreamName, "-p:" + symbolFile, "-i:" + streamFile},
		OnLine:     func(line string) { i.Logger.InfoContext(ctx, line) },
	}, i.timeout())

	if result.ExitCode < 0 {
		i.Logger.ErrorContext(ctx, fmt.Sprintf("Failed to inject SourceServerStream into pdb for symbol file %s with error code %d",
			symbolFile, result.ExitCode), "error", result.Err)

		return fmt.Errorf("%w: %s: exit code %d", ErrInject, symbolFile, result.ExitCode)
	}

	i.Logger.InfoContext(ctx, "... source indexing successful!")

	return nil
}

// Read returns the srcsrv stream currently embedded in symbolFile.
func (i *Injector) Read(ctx context.Context, symbolFile string) (string, error) {
	result := i.Runner.Run(ctx, process.Command{
		Executable: i.Tool,
		Dir:        ".",
		Args:       []string{"-r", "-s:" + srcsrv.StreamName, "-p:" + symbolFile},
	}, i.timeout())

	if result.ExitCode < 0 {
		return "", fmt.Errorf("%w: %s: exit code %d: %w", ErrRead, symbolFile, result.ExitCode, result.Err)
	}

	var sb strings.Builder

	for line := range result.Lines() {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoStream, symbolFile)
	}

	return sb.String(), nil
}

func (i *Injector) cleanup(ctx context.Context, streamFile string) {
	if i.KeepStream {
		i.Logger.DebugContext(ctx, "keeping stream file", "path", streamFile)

		return
	}

	err := os.Remove(streamFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		i.Logger.WarnContext(ctx, "could not delete stream file", "path", streamFile, "error", err)
	}
}

func (i *Injector) timeout() time.Duration {
	if i.Timeout <= 0 {
		return DefaultTimeout
	}

	return i.Timeout
}
