package report

import (
	"github.com/Sumatoshi-tech/srcindex/internal/indexer"
)

// FileReport is the outcome of one symbol file.
type FileReport struct {
	SymbolFile string        `json:"symbol_file"     yaml:"symbol_file"`
	State      indexer.State `json:"state"           yaml:"state"`
	References int           `json:"references"      yaml:"references"`
	Revisions  int           `json:"revisions"       yaml:"revisions"`
	Seconds    float64       `json:"seconds"         yaml:"seconds"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunReport is the serializable form of a run summary.
type RunReport struct {
	Indexed        int          `json:"indexed"         yaml:"indexed"`
	Skipped        int          `json:"skipped"         yaml:"skipped"`
	Failed         int          `json:"failed"          yaml:"failed"`
	ElapsedSeconds float64      `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Files          []FileReport `json:"files"           yaml:"files"`
}

// FromSummary converts a run summary into a report.
func FromSummary(summary indexer.Summary) RunReport {
	files := make([]FileReport, 0, len(summary.Outcomes))

	for _, outcome := range summary.Outcomes {
		file := FileReport{
			SymbolFile: outcome.SymbolFile,
			State:      outcome.State,
			References: outcome.References,
			Revisions:  outcome.Revisions,
			Seconds:    outcome.Duration.Seconds(),
		}

		if outcome.Err != nil {
			file.Error = outcome.Err.Error()
		}

		files = append(files, file)
	}

	return RunReport{
		Indexed:        summary.Indexed,
		Skipped:        summary.Skipped(),
		Failed:         summary.Failed(),
		ElapsedSeconds: summary.Elapsed.Seconds(),
		Files:          files,
	}
}
