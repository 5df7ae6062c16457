package report_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/srcindex/internal/depot"
	"github.com/Sumatoshi-tech/srcindex/internal/indexer"
	"github.com/Sumatoshi-tech/srcindex/internal/report"
	"github.com/Sumatoshi-tech/srcindex/internal/srcsrv"
)

func sampleSummary() indexer.Summary {
	return indexer.Summary{
		Outcomes: []indexer.Outcome{
			{SymbolFile: `C:\out\game.pdb`, State: indexer.Injected, References: 1200, Revisions: 1187, Duration: 1500 * time.Millisecond},
			{SymbolFile: `C:\out\tool.pdb`, State: indexer.Skipped, Duration: 20 * time.Millisecond},
			{SymbolFile: `C:\out\bad.pdb`, State: indexer.Failed, References: 3, Revisions: 3, Err: errors.New("pdbstr exited -1")},
		},
		Indexed: 1,
		Elapsed: 2 * time.Second,
	}
}

func TestFromSummary(t *testing.T) {
	t.Parallel()

	rep := report.FromSummary(sampleSummary())

	assert.Equal(t, 1, rep.Indexed)
	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 1, rep.Failed)
	assert.InDelta(t, 2.0, rep.ElapsedSeconds, 1e-9)
	require.Len(t, rep.Files, 3)
	assert.InDelta(t, 1.5, rep.Files[0].Seconds, 1e-9)
	assert.Empty(t, rep.Files[0].Error)
	assert.Equal(t, "pdbstr exited -1", rep.Files[2].Error)
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"json", "JSON", "run.json", "yaml", "run.yml", "out/Run.YAML"} {
		codec, err := report.CodecFor(name)
		require.NoError(t, err, name)
		assert.NotNil(t, codec)
	}

	_, err := report.CodecFor("run.xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)

	_, err = report.CodecFor("table")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestSaveLoad_JSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.json")
	rep := report.FromSummary(sampleSummary())

	require.NoError(t, report.Save(path, rep))

	var loaded report.RunReport

	require.NoError(t, report.Load(path, &loaded))
	assert.Equal(t, rep, loaded)
	assert.FileExists(t, path)
}

func TestSaveLoad_YAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.yaml")
	rep := report.FromSummary(sampleSummary())

	require.NoError(t, report.Save(path, rep))

	var loaded report.RunReport

	require.NoError(t, report.Load(path, &loaded))
	assert.Equal(t, indexer.Skipped, loaded.Files[1].State)
	assert.Equal(t, rep.Failed, loaded.Failed)
}

func TestJSONCodec_StateAsName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.NewJSONCodec().Encode(&buf, report.FromSummary(sampleSummary())))
	assert.Contains(t, buf.String(), `"state": "injected"`)
	assert.Contains(t, buf.String(), `"symbol_file"`)
}

func TestSave_UnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.txt")

	require.ErrorIs(t, report.Save(path, report.RunReport{}), report.ErrUnknownFormat)
	assert.NoFileExists(t, path)
}

func TestSummaryTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	report.SummaryTable(&buf, report.FromSummary(sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "injected")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1 indexed, 1 skipped, 1 failed")
	assert.Contains(t, out, "pdbstr exited -1")
}

func TestStreamTable(t *testing.T) {
	t.Parallel()

	stream := srcsrv.New("perforce:1666", time.Date(2026, time.October, 14, 9, 41, 7, 0, time.UTC), []depot.Revision{
		{LocalPath: `C:\ws\a.cpp`, DepotPath: "//depot/a.cpp", Revision: "#4"},
	})

	var buf bytes.Buffer

	report.StreamTable(&buf, stream)

	out := buf.String()
	assert.Contains(t, out, "perforce:1666")
	assert.Contains(t, out, "Wed Oct 14 09:41:07 2026")
	assert.Contains(t, out, "//depot/a.cpp")
	assert.Contains(t, out, "Total: 1 files")
}
