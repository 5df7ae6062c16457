package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/srcindex/internal/indexer"
	"github.com/Sumatoshi-tech/srcindex/internal/observability"
	"github.com/Sumatoshi-tech/srcindex/internal/report"
	"github.com/Sumatoshi-tech/srcindex/pkg/version"
)

// IndexCommand holds configuration and dependencies for the indexing run.
type IndexCommand struct {
	globals *globalFlags

	keepStream bool
	reportPath string
	dryRun     bool

	deps Deps
}

// NewRootCommand creates the srcindex root command, which indexes symbol files.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(Deps{PublishLogger: slog.SetDefault})
}

func newRootCommandWithDeps(deps Deps) *cobra.Command {
	globals := &globalFlags{}
	ic := &IndexCommand{globals: globals, deps: deps}

	cmd := &cobra.Command{
		Use:   "srcindex [SymbolFileName]",
		Short: "Index symbol files with Perforce source information",
		Long: `Indexes the named symbol file, or indexes all symbol files in the current
folder or lower if no symbol file is named.

Each symbol file gets a source server stream naming the depot path and synced
revision of every workspace source file it was built from, so debuggers can
fetch the exact source when opening a minidump.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          ic.run,
	}

	cmd.PersistentFlags().StringVar(&globals.configPath, "config", "", "Config file (default: .srcindex.yaml in the current or home folder)")
	cmd.PersistentFlags().BoolVarP(&globals.verbose, "verbose", "v", false, "Display verbose logging")
	cmd.PersistentFlags().BoolVar(&globals.noColor, "no-color", false, "Disable colored console output")
	cmd.PersistentFlags().BoolVar(&globals.logJSON, "log-json", false, "Write logs as JSON")

	cmd.Flags().BoolVar(&ic.keepStream, "keep-stream", false, "Keep the generated stream file next to each symbol file")
	cmd.Flags().StringVar(&ic.reportPath, "report", "", "Write a run report (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&ic.dryRun, "dry-run", false, "Print the streams that would be injected without modifying symbol files")

	cmd.AddCommand(newInspectCommand(globals, deps))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (ic *IndexCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logOutput := out
	if ic.dryRun {
		logOutput = cmd.ErrOrStderr()
	}

	if ic.reportPath != "" {
		_, err := report.CodecFor(ic.reportPath)
		if err != nil {
			return err
		}
	}

	s, err := openSession(*ic.globals, observability.ModeIndex, logOutput, ic.deps)
	if err != nil {
		return err
	}
	defer s.close()

	start := s.deps.Now()

	observability.Title(ctx, s.logger, "srcindex "+version.Version+" - Perforce source indexer.")
	observability.Title(ctx, s.logger, "Indexes pdb files to allow source debugging of minidumps.")

	if ic.keepStream {
		s.injector.KeepStream = true
	}

	err = s.connect(ctx)
	if err != nil {
		return err
	}

	name := symbolFileName(args)
	if name != "" && !filepath.IsAbs(name) {
		name = filepath.Join(s.workDir, name)
	}

	files, err := indexer.Discover(s.logger, name, s.workDir, s.cfg.Discovery.Extension)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "")

	if ic.dryRun {
		return ic.preview(ctx, s, files, out)
	}

	summary := s.pipeline.Run(ctx, files)
	summary.Elapsed = s.deps.Now().Sub(start)

	observability.Success(ctx, s.logger, fmt.Sprintf("%d symbol files successfully indexed in %.2f seconds.",
		summary.Indexed, summary.Elapsed.Seconds()))

	rep := report.FromSummary(summary)

	if ic.globals.verbose && len(rep.Files) > 0 {
		report.SummaryTable(out, rep)
	}

	if ic.reportPath != "" {
		err = report.Save(ic.reportPath, rep)
		if err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "... wrote run report", "path", ic.reportPath)
	}

	return ctx.Err()
}

func (ic *IndexCommand) preview(ctx context.Context, s *session, files []string, out io.Writer) error {
	for _, file := range files {
		stream, err := s.pipeline.Preview(ctx, file)
		if err != nil {
			s.logger.WarnContext(ctx, "... nothing to index", "file", file, "error", err)

			continue
		}

		_, _ = fmt.Fprintf(out, "%s:\n%s\n", file, stream.String())
	}

	return nil
}

// symbolFileName returns the last bare token, or "" to search the current folder.
func symbolFileName(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[len(args)-1]
}
