package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/srcindex/internal/toolchain"
	"github.com/Sumatoshi-tech/srcindex/pkg/process"
)

const (
	fakeSrcTool = "srctool.exe"
	fakePdbStr  = "pdbstr.exe"
)

// fakeTools emulates srctool, pdbstr and a p4 server for one workspace.
type fakeTools struct {
	mu sync.Mutex

	root          string
	sources       map[string][]string
	streams       map[string]string
	clientRoot    string
	defaultWS     string
	defaultWSRoot string
	writes        int
	injectExit    int
}

func newFakeTools(root string) *fakeTools {
	return &fakeTools{
		root:       root,
		clientRoot: root,
		sources:    map[string][]string{},
		streams:    map[string]string{},
	}
}

func (f *fakeTools) Run(_ context.Context, cmd process.Command, _ time.Duration) process.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Executable {
	case fakeSrcTool:
		lines := f.sources[cmd.Args[0]]

		return process.NewResult(len(lines), lines...)
	case fakePdbStr:
		return f.pdbstr(cmd.Args)
	default:
		return f.p4(cmd.Args)
	}
}

func (f *fakeTools) pdbstr(args []string) process.Result {
	var pdb, input string

	for _, arg := range args {
		if v, ok := strings.CutPrefix(arg, "-p:"); ok {
			pdb = v
		}

		if v, ok := strings.CutPrefix(arg, "-i:"); ok {
			input = v
		}
	}

	if args[0] == "-r" {
		text, ok := f.streams[pdb]
		if !ok {
			return process.NewResult(0)
		}

		return process.NewResult(0, strings.Split(strings.TrimSuffix(text, "\r\n"), "\r\n")...)
	}

	if f.injectExit < 0 {
		return process.NewResult(f.injectExit)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return process.Result{ExitCode: process.ExitSpawnFailed, Err: err}
	}

	f.writes++
	f.streams[pdb] = string(data)

	return process.NewResult(0)
}

func (f *fakeTools) p4(args []string) process.Result {
	for idx, arg := range args {
		switch arg {
		case "set":
			return process.NewResult(0, "P4CLIENT="+f.defaultWS, "P4PORT=perforce:1666", "P4USER=jdoe")
		case "info":
			return f.info(args)
		case "clients":
			return process.NewResult(0,
				"... client game-main",
				"... Owner jdoe",
				"... Host ",
				"... Root "+f.clientRoot,
			)
		case "where":
			return f.where(args[idx+1:])
		case "files":
			return f.files(args[idx+1:])
		}
	}

	return process.NewResult(0)
}

func (f *fakeTools) info(args []string) process.Result {
	if f.defaultWS == "" || !slices.Contains(args, f.defaultWS) {
		return process.NewResult(0,
			"... userName jdoe",
			"... clientName *unknown*",
			"... serverAddress perforce:1666",
		)
	}

	return process.NewResult(0,
		"... userName jdoe",
		"... clientName "+f.defaultWS,
		"... clientRoot "+f.defaultWSRoot,
		"... serverAddress perforce:1666",
	)
}

func (f *fakeTools) where(paths []string) process.Result {
	var lines []string

	for _, path := range paths {
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			continue
		}

		rel = filepath.ToSlash(rel)
		lines = append(lines,
			"... depotFile //depot/"+rel,
			"... clientFile //game-main/"+rel,
			"... path "+path,
			"",
		)
	}

	return process.NewResult(0, lines...)
}

func (f *fakeTools) files(specs []string) process.Result {
	var lines []string

	for _, spec := range specs {
		lines = append(lines, "... depotFile "+strings.TrimSuffix(spec, "#have"), "... rev 7", "")
	}

	return process.NewResult(0, lines...)
}

func (f *fakeTools) stream(pdb string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.streams[pdb]
}

// workspace is a temporary Perforce workspace with a config file and fake tools.
type workspace struct {
	root   string
	config string
	tools  *fakeTools
	locate func(toolchain.Options) (toolchain.Tools, error)
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()

	root := t.TempDir()
	cfg := filepath.Join(root, ".srcindex.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("perforce:\n  config_file: .no-such-p4config\n"), 0o600))

	return &workspace{
		root:   root,
		config: cfg,
		tools:  newFakeTools(root),
		locate: func(toolchain.Options) (toolchain.Tools, error) {
			return toolchain.Tools{SupportDir: root, SrcTool: fakeSrcTool, PdbStr: fakePdbStr}, nil
		},
	}
}

// symbolFile creates a symbol file whose extractor output lists sources under
// the workspace root plus one system header.
func (w *workspace) symbolFile(t *testing.T, rel string, sources ...string) string {
	t.Helper()

	path := filepath.Join(w.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("pdb"), 0o600))

	lines := make([]string, 0, len(sources)+1)
	for _, src := range sources {
		lines = append(lines, filepath.Join(w.root, src))
	}

	if len(lines) > 0 {
		lines = append(lines, `C:\Program Files\SDK\include\windows.h`)
	}

	w.tools.sources[path] = lines

	return path
}

func (w *workspace) deps() Deps {
	stamp := time.Date(2026, time.October, 14, 9, 41, 7, 0, time.UTC)

	return Deps{
		Runner: w.tools,
		Locate: w.locate,
		Getwd:  func() (string, error) { return w.root, nil },
		Now:    func() time.Time { return stamp },
	}
}

// execute runs the root command with args and returns stdout and stderr.
func (w *workspace) execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommandWithDeps(w.deps())

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", w.config, "--no-color"}, args...))

	err := cmd.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}
