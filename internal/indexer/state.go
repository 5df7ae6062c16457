// Package indexer drives symbol files through extraction, resolution, stream
// building and injection.
package indexer

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownState is returned when decoding an unrecognised state name.
var ErrUnknownState = errors.New("unknown pipeline state")

// State is where a symbol file ended up in the pipeline.
type State int

// Pipeline states. Injected, Skipped and Failed are terminal.
const (
	Discovered State = iota
	Extracted
	Resolved
	StreamBuilt
	Injected
	Skipped
	Failed
)

var stateNames = [...]string{
	Discovered:  "discovered",
	Extracted:   "extracted",
	Resolved:    "resolved",
	StreamBuilt: "stream_built",
	Injected:    "injected",
	Skipped:     "skipped",
	Failed:      "failed",
}

// String returns the lower-case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// MarshalText renders the state name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = State(state)

			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownState, text)
}

// Terminal reports whether no further stage runs after s.
func (s State) Terminal() bool {
	return s == Injected || s == Skipped || s == Failed
}

// Outcome records what happened to one symbol file.
type Outcome struct {
	SymbolFile string
	State      State
	References int
	Revisions  int
	Err        error
	Duration   time.Duration
}

// Summary is the result of a run. Indexed counts outcomes in the Injected state.
type Summary struct {
	Outcomes []Outcome
	Indexed  int
	Elapsed  time.Duration
}

// Skipped counts symbol files with no workspace references.
func (s Summary) Skipped() int {
	return s.count(Skipped)
}

// Failed counts symbol files whose stream could not be built or injected.
func (s Summary) Failed() int {
	return s.count(Failed)
}

func (s Summary) count(state State) int {
	n := 0

	for _, outcome := range s.Outcomes {
		if outcome.State == state {
			n++
		}
	}

	return n
}
