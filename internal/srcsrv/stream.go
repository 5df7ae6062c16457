// Package srcsrv writes and reads the source server index stream embedded in symbol files.
//
// The format is consumed by the debugger's source server, which parses it line by
// line, so section headers and variable definitions must be reproduced exactly.
package srcsrv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/srcindex/internal/depot"
)

// Section headers.
const (
	HeaderIni       = "SRCSRV: ini ------------------------------------------------"
	HeaderVariables = "SRCSRV: variables ------------------------------------------"
	HeaderFiles     = "SRCSRV: source files ---------------------------------------"
	HeaderEnd       = "SRCSRV: end ------------------------------------------------"
)

// Fixed stream values.
const (
	// DateTimeLayout renders DATETIME like "Wed Oct 14 09:41:07 2026".
	DateTimeLayout = "Mon Jan 02 15:04:05 2006"

	// DefaultVersionControl is the VERCTRL value.
	DefaultVersionControl = "Perforce"

	// DefaultFetchTool is the client the debugger runs to print historical source.
	DefaultFetchTool = "p4.exe"

	// DefaultTempExtension is the extension of the sibling stream file.
	DefaultTempExtension = ".SourceServerTemp"

	// StreamName is the symbol-file stream holding the index.
	StreamName = "srcsrv"

	repositoryToken = "REPOSITORY"
	fieldSeparator  = "*"
	dataFields      = 4
	lineEnding      = "\r\n"

	targetTemplate  = `%TARG%\%VAR2%\%fnbksl%(%VAR3%)\%VAR4%\%fnfile%(%VAR1%)`
	commandTemplate = `%s -p %%fnvar%%(%%VAR2%%) print -o %%SRCSRVTRG%% -q "//%%VAR3%%#%%VAR4%%"`
)

// Stream is the content of one source index stream.
type Stream struct {
	VersionControl string           `json:"version_control" yaml:"version_control"`
	Timestamp      time.Time        `json:"timestamp"       yaml:"timestamp"`
	Port           string           `json:"port"            yaml:"port"`
	FetchTool      string           `json:"fetch_tool"      yaml:"fetch_tool"`
	Files          []depot.Revision `json:"files"           yaml:"files"`
}

// New creates a stream with the default version control kind and fetch tool.
func New(port string, timestamp time.Time, files []depot.Revision) Stream {
	return Stream{
		VersionControl: DefaultVersionControl,
		Timestamp:      timestamp,
		Port:           port,
		FetchTool:      DefaultFetchTool,
		Files:          files,
	}
}

// Write serialises s in source server format. Depot paths and revisions are
// written without their leading '/' and '#' characters. Fields are not escaped;
// a '*' inside a path corrupts the line.
func Write(w io.Writer, s Stream) error {
	bw := bufio.NewWriter(w)

	vcs := s.VersionControl
	if vcs == "" {
		vcs = DefaultVersionControl
	}

	fetch := s.FetchTool
	if fetch == "" {
		fetch = DefaultFetchTool
	}

	lines := []string{
		HeaderIni,
		"VERSION=1",
		"INDEXVERSION=2",
		"VERCTRL=" + vcs,
		"DATETIME=" + s.Timestamp.Format(DateTimeLayout),
		HeaderVariables,
		repositoryToken + "=" + s.Port,
		"SRCSRVTRG=" + targetTemplate,
		"SRCSRVCMD=" + fmt.Sprintf(commandTemplate, fetch),
		HeaderFiles,
	}

	for _, line := range lines {
		writeLine(bw, line)
	}

	for _, file := range s.Files {
		writeLine(bw, DataLine(file))
	}

	writeLine(bw, HeaderEnd)

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("write source index stream: %w", err)
	}

	return nil
}

// DataLine renders one source file entry.
func DataLine(rev depot.Revision) string {
	return strings.Join([]string{
		rev.LocalPath,
		repositoryToken,
		strings.TrimLeft(rev.DepotPath, "/"),
		strings.TrimLeft(rev.Revision, "#"),
	}, fieldSeparator)
}

func writeLine(bw *bufio.Writer, line string) {
	_, _ = bw.WriteString(line)
	_, _ = bw.WriteString(lineEnding)
}

// String renders s; it is Write into a string.
func (s Stream) String() string {
	var sb strings.Builder

	_ = Write(&sb, s)

	return sb.String()
}

// TempPath returns the sibling stream file for symbolFile: same directory and
// base name, with ext replacing the extension.
func TempPath(symbolFile, ext string) string {
	if ext == "" {
		ext = DefaultTempExtension
	}

	return strings.TrimSuffix(symbolFile, filepath.Ext(symbolFile)) + ext
}

// WriteFile creates or overwrites the sibling stream file of symbolFile and returns its path.
// When writing fails after the file was created, the path of the partial file
// is returned with the error.
func WriteFile(symbolFile, ext string, s Stream) (string, error) {
	path := TempPath(symbolFile, ext)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	writeErr := Write(file, s)
	closeErr := file.Close()

	if writeErr != nil {
		return path, writeErr
	}

	if closeErr != nil {
		return path, fmt.Errorf("close %s: %w", path, closeErr)
	}

	return path, nil
}
