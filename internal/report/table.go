package report

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/srcindex/internal/srcsrv"
)

// SummaryTable writes one row per symbol file followed by a totals footer.
func SummaryTable(w io.Writer, rep RunReport) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Symbol file", "State", "References", "Revisions", "Time", "Error"})

	for _, file := range rep.Files {
		tbl.AppendRow(table.Row{
			filepath.Base(file.SymbolFile),
			file.State.String(),
			humanize.Comma(int64(file.References)),
			humanize.Comma(int64(file.Revisions)),
			formatSeconds(file.Seconds),
			file.Error,
		})
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("Total: %s files", humanize.Comma(int64(len(rep.Files)))),
		fmt.Sprintf("%d indexed, %d skipped, %d failed", rep.Indexed, rep.Skipped, rep.Failed),
		"", "",
		formatSeconds(rep.ElapsedSeconds),
		"",
	})

	tbl.Render()
}

// StreamTable writes the stream variables followed by its source file entries.
func StreamTable(w io.Writer, stream srcsrv.Stream) {
	vars := newTable(w)
	vars.AppendRows([]table.Row{
		{"VERCTRL", stream.VersionControl},
		{"DATETIME", stream.Timestamp.Format(srcsrv.DateTimeLayout)},
		{"REPOSITORY", stream.Port},
		{"FETCH TOOL", stream.FetchTool},
	})
	vars.Render()

	_, _ = fmt.Fprintln(w)

	files := newTable(w)
	files.AppendHeader(table.Row{"Local path", "Depot path", "Revision"})

	for _, file := range stream.Files {
		files.AppendRow(table.Row{file.LocalPath, file.DepotPath, file.Revision})
	}

	files.AppendFooter(table.Row{fmt.Sprintf("Total: %s files", humanize.Comma(int64(len(stream.Files)))), "", ""})
	files.Render()
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Millisecond).String()
}
