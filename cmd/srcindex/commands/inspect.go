package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/srcindex/internal/observability"
	"github.com/Sumatoshi-tech/srcindex/internal/report"
	"github.com/Sumatoshi-tech/srcindex/internal/srcsrv"
)

// Inspect output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatRaw   = "raw"
)

// ErrStreamOutdated is returned by inspect --diff when the embedded stream no
// longer matches the workspace.
var ErrStreamOutdated = errors.New("embedded source index stream is out of date")

var errUnknownFormat = errors.New("unknown format")

// InspectCommand reads back the stream embedded in a symbol file.
type InspectCommand struct {
	globals *globalFlags

	format string
	diff   bool

	deps Deps
}

func newInspectCommand(globals *globalFlags, deps Deps) *cobra.Command {
	ic := &InspectCommand{globals: globals, format: FormatTable, deps: deps}

	cmd := &cobra.Command{
		Use:   "inspect <symbol-file>",
		Short: "Show the source index stream embedded in a symbol file",
		Long: `Reads the srcsrv stream of a symbol file with pdbstr and prints it.

With --diff the stream is compared, ignoring DATETIME, with the one an
indexing run would generate from the current workspace.`,
		Args: cobra.ExactArgs(1),
		RunE: ic.run,
	}

	cmd.Flags().StringVar(&ic.format, "format", FormatTable, "Output format: table, json, yaml, raw")
	cmd.Flags().BoolVar(&ic.diff, "diff", false, "Compare with the stream the workspace would produce now")

	return cmd
}

func (ic *InspectCommand) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	symbolFile := args[0]

	switch ic.format {
	case FormatTable, FormatJSON, FormatYAML, FormatRaw:
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, ic.format)
	}

	s, err := openSession(*ic.globals, observability.ModeInspect, cmd.ErrOrStderr(), ic.deps)
	if err != nil {
		return err
	}
	defer s.close()

	text, err := s.injector.Read(ctx, symbolFile)
	if err != nil {
		return err
	}

	embedded, err := srcsrv.Parse(strings.NewReader(text))
	if err != nil {
		return err
	}

	if ic.diff {
		return ic.compare(cmd, s, symbolFile, embedded, text)
	}

	return writeStream(out, ic.format, embedded, text)
}

func (ic *InspectCommand) compare(cmd *cobra.Command, s *session, symbolFile string, embedded srcsrv.Stream, text string) error {
	ctx := cmd.Context()

	err := s.connect(ctx)
	if err != nil {
		return err
	}

	current, err := s.pipeline.Preview(ctx, symbolFile)
	if err != nil {
		return err
	}

	current.Timestamp = embedded.Timestamp
	currentText := current.String()

	if srcsrv.Equivalent(text, currentText) {
		observability.Success(ctx, s.logger, fmt.Sprintf("... %s is up to date.", symbolFile))

		return nil
	}

	writeLineDiff(cmd.OutOrStdout(), text, currentText)

	return fmt.Errorf("%w: %s", ErrStreamOutdated, symbolFile)
}

func writeStream(w io.Writer, format string, stream srcsrv.Stream, text string) error {
	switch format {
	case FormatRaw:
		_, err := io.WriteString(w, text)

		return err
	case FormatTable:
		report.StreamTable(w, stream)

		return nil
	default:
		codec, err := report.CodecFor(format)
		if err != nil {
			return err
		}

		return codec.Encode(w, stream)
	}
}

// writeLineDiff prints a line diff with "-" for embedded and "+" for current lines.
func writeLineDiff(w io.Writer, embedded, current string) {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(normalizeEndings(embedded), normalizeEndings(current))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		prefix := "  "

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffEqual:
		}

		for line := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			_, _ = fmt.Fprintln(w, prefix+line)
		}
	}
}

func normalizeEndings(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
