package srcsrv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/srcindex/internal/depot"
)

// ErrMalformed is returned for text that is not a source index stream.
var ErrMalformed = errors.New("malformed source index stream")

const (
	keyVersionControl = "VERCTRL"
	keyDateTime       = "DATETIME"
	keyCommand        = "SRCSRVCMD"
	commandArgsPrefix = " -p "
)

type section int

const (
	sectionNone section = iota
	sectionIni
	sectionVariables
	sectionFiles
	sectionEnd
)

// Parse reads a stream produced by Write. Depot paths regain their leading
// "//" and revisions their leading '#', so Parse(Write(s)) reproduces s.Files.
func Parse(r io.Reader) (Stream, error) {
	var (
		stream  Stream
		current = sectionNone
		lineNo  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lineNo++

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if next, ok := headerSection(line); ok {
			if next <= current {
				return Stream{}, fmt.Errorf("%w: line %d: section out of order: %q", ErrMalformed, lineNo, line)
			}

			current = next

			continue
		}

		err := stream.apply(current, line)
		if err != nil {
			return Stream{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, lineNo, err)
		}
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return Stream{}, fmt.Errorf("read source index stream: %w", scanErr)
	}

	if current != sectionEnd {
		return Stream{}, fmt.Errorf("%w: missing %q", ErrMalformed, HeaderEnd)
	}

	return stream, nil
}

func headerSection(line string) (section, bool) {
	switch line {
	case HeaderIni:
		return sectionIni, true
	case HeaderVariables:
		return sectionVariables, true
	case HeaderFiles:
		return sectionFiles, true
	case HeaderEnd:
		return sectionEnd, true
	default:
		return sectionNone, false
	}
}

func (s *Stream) apply(current section, line string) error {
	switch current {
	case sectionIni, sectionVariables:
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("expected KEY=VALUE, got %q", line)
		}

		return s.applyVariable(key, value)
	case sectionFiles:
		rev, err := parseDataLine(line)
		if err != nil {
			return err
		}

		s.Files = append(s.Files, rev)

		return nil
	case sectionNone, sectionEnd:
		return fmt.Errorf("content outside a section: %q", line)
	}

	return nil
}

func (s *Stream) applyVariable(key, value string) error {
	switch key {
	case keyVersionControl:
		s.VersionControl = value
	case keyDateTime:
		ts, err := time.ParseInLocation(DateTimeLayout, value, time.Local)
		if err != nil {
			return fmt.Errorf("bad %s %q: %w", keyDateTime, value, err)
		}

		s.Timestamp = ts
	case repositoryToken:
		s.Port = value
	case keyCommand:
		if tool, _, found := strings.Cut(value, commandArgsPrefix); found {
			s.FetchTool = tool
		}
	}

	return nil
}

func parseDataLine(line string) (depot.Revision, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != dataFields {
		return depot.Revision{}, fmt.Errorf("expected %d '*' separated fields, got %d in %q", dataFields, len(fields), line)
	}

	if fields[1] != repositoryToken {
		return depot.Revision{}, fmt.Errorf("expected %s in field 2, got %q", repositoryToken, fields[1])
	}

	return depot.Revision{
		LocalPath: fields[0],
		DepotPath: "//" + fields[2],
		Revision:  "#" + fields[3],
	}, nil
}

// Equivalent reports whether two stream texts match line for line, ignoring
// DATETIME and line endings.
func Equivalent(a, b string) bool {
	return stripDateTime(a) == stripDateTime(b)
}

func stripDateTime(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]

	for _, line := range lines {
		if strings.HasPrefix(line, keyDateTime+"=") {
			continue
		}

		kept = append(kept, line)
	}

	return strings.TrimRight(strings.Join(kept, "\n"), "\n")
}
