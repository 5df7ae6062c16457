package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/srcindex/internal/depot"
	"github.com/Sumatoshi-tech/srcindex/internal/observability"
	"github.com/Sumatoshi-tech/srcindex/internal/srcsrv"
)

// ErrNoReferences is returned by Preview for a symbol file without workspace sources.
var ErrNoReferences = errors.New("symbol file references no workspace sources")

// Tool names used for duration metrics.
const (
	toolExtractor = "srctool"
	toolInjector  = "pdbstr"
)

// Extractor lists the workspace sources a symbol file was compiled from.
type Extractor interface {
	Extract(ctx context.Context, symbolFile, workspaceRoot string) []string
}

// Resolver maps workspace sources to synced depot revisions.
type Resolver interface {
	Resolve(ctx context.Context, localPaths []string) ([]depot.Revision, error)
}

// Injector merges the sibling stream file into a symbol file.
type Injector interface {
	Inject(ctx context.Context, symbolFile string) error
}

// StreamOptions shape the generated stream.
type StreamOptions struct {
	// Extension of the sibling stream file; empty means srcsrv.DefaultTempExtension.
	Extension      string
	VersionControl string
	FetchTool      string

	// KeepStream leaves a partially written stream file in place.
	KeepStream bool
}

// Pipeline runs symbol files one at a time through the four stages.
type Pipeline struct {
	Extractor Extractor
	Resolver  Resolver
	Injector  Injector
	Conn      depot.Connection
	Stream    StreamOptions

	Logger  *slog.Logger
	Metrics *observability.IndexMetrics
	Tracer  trace.Tracer

	// Clock stamps DATETIME and measures durations. Nil means time.Now.
	Clock func() time.Time
}

// Run processes files in order and returns the per-file outcomes.
// A cancelled context stops the loop before the next file.
func (p *Pipeline) Run(ctx context.Context, files []string) Summary {
	start := p.now()
	summary := Summary{Outcomes: make([]Outcome, 0, len(files))}

	for _, file := range files {
		if ctx.Err() != nil {
			p.logger().WarnContext(ctx, "... run interrupted", "remaining", len(files)-len(summary.Outcomes))

			break
		}

		outcome := p.Process(ctx, file)
		if outcome.State == Injected {
			summary.Indexed++
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	summary.Elapsed = p.now().Sub(start)

	return summary
}

// Process runs one symbol file to a terminal state. Failures are recorded in
// the outcome, never returned.
func (p *Pipeline) Process(ctx context.Context, symbolFile string) Outcome {
	ctx = observability.WithSymbolFile(ctx, symbolFile)

	ctx, span := p.tracer().Start(ctx, "indexer.process", trace.WithAttributes(attribute.String("symbol_file", symbolFile)))
	defer span.End()

	start := p.now()
	outcome := p.process(ctx, symbolFile)
	outcome.Duration = p.now().Sub(start)

	span.SetAttributes(
		attribute.String("state", outcome.State.String()),
		attribute.Int("references", outcome.References),
		attribute.Int("revisions", outcome.Revisions),
	)

	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	}

	p.Metrics.RecordSymbolFile(ctx, outcome.State.String(), outcome.References, outcome.Revisions)

	p.logger().InfoContext(ctx, "")

	return outcome
}

func (p *Pipeline) process(ctx context.Context, symbolFile string) Outcome {
	outcome := Outcome{SymbolFile: symbolFile, State: Discovered}

	references := p.extract(ctx, symbolFile)
	outcome.State = Extracted
	outcome.References = len(references)

	if len(references) == 0 {
		outcome.State = Skipped

		return outcome
	}

	revisions := p.resolve(ctx, symbolFile, references)
	outcome.State = Resolved
	outcome.Revisions = len(revisions)

	stream := p.build(revisions)
	streamFile := srcsrv.TempPath(symbolFile, p.Stream.Extension)

	p.logger().InfoContext(ctx, fmt.Sprintf("... creating %s with %d files", streamFile, len(revisions)))

	written, err := srcsrv.WriteFile(symbolFile, p.Stream.Extension, stream)
	if err != nil {
		p.logger().ErrorContext(ctx, fmt.Sprintf("... failed to create source server stream for %s", symbolFile), "error", err)

		if written != "" && !p.Stream.KeepStream {
			removeErr := os.Remove(written)
			if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				p.logger().WarnContext(ctx, "... failed to remove partial stream file", "path", written, "error", removeErr)
			}
		}

		outcome.State = Failed
		outcome.Err = err

		return outcome
	}

	outcome.State = StreamBuilt

	err = p.inject(ctx, symbolFile)
	if err != nil {
		outcome.State = Failed
		outcome.Err = err

		return outcome
	}

	outcome.State = Injected

	return outcome
}

// Preview builds the stream Process would inject, without writing or injecting it.
func (p *Pipeline) Preview(ctx context.Context, symbolFile string) (srcsrv.Stream, error) {
	references := p.extract(ctx, symbolFile)
	if len(references) == 0 {
		return srcsrv.Stream{}, fmt.Errorf("%w: %s", ErrNoReferences, symbolFile)
	}

	return p.build(p.resolve(ctx, symbolFile, references)), nil
}

func (p *Pipeline) extract(ctx context.Context, symbolFile string) []string {
	start := p.now()
	references := p.Extractor.Extract(ctx, symbolFile, p.Conn.WorkspaceRoot())
	p.Metrics.RecordTool(ctx, toolExtractor, p.now().Sub(start))

	return references
}

// resolve keeps whatever revisions were joined when the server fails part way.
func (p *Pipeline) resolve(ctx context.Context, symbolFile string, references []string) []depot.Revision {
	revisions, err := p.Resolver.Resolve(ctx, references)
	if err != nil {
		p.logger().WarnContext(ctx, fmt.Sprintf("... revision lookup incomplete for %s; indexing %d of %d files",
			symbolFile, len(revisions), len(references)), "error", err)
	}

	return revisions
}

func (p *Pipeline) build(revisions []depot.Revision) srcsrv.Stream {
	stream := srcsrv.New(p.Conn.Port(), p.now(), revisions)

	if p.Stream.VersionControl != "" {
		stream.VersionControl = p.Stream.VersionControl
	}

	if p.Stream.FetchTool != "" {
		stream.FetchTool = p.Stream.FetchTool
	}

	return stream
}

func (p *Pipeline) inject(ctx context.Context, symbolFile string) error {
	start := p.now()
	err := p.Injector.Inject(ctx, symbolFile)
	p.Metrics.RecordTool(ctx, toolInjector, p.now().Sub(start))

	return err
}

func (p *Pipeline) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}

	return p.Clock()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}

	return p.Logger
}

func (p *Pipeline) tracer() trace.Tracer {
	if p.Tracer == nil {
		return nooptrace.NewTracerProvider().Tracer("indexer")
	}

	return p.Tracer
}
