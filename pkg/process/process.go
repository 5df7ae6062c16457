// Package process spawns external console tools and captures their output.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Exit codes reported when the child did not run to completion. They are all
// negative so callers can tell them apart from a tool that ran and failed.
const (
	ExitSpawnFailed         = -1
	ExitMissingExecutable   = -2
	ExitMissingDirectory    = -3
	ExitAmbiguousExecutable = -4
	ExitTimeout             = -258
)

// maxStderrLines bounds the diagnostics kept from a child's standard error.
const maxStderrLines = 256

// Sentinel errors attached to Result.Err.
var (
	ErrMissingExecutable   = errors.New("executable not found")
	ErrAmbiguousExecutable = errors.New("executable resolves to more than one file")
	ErrMissingDirectory    = errors.New("working directory not found")
	ErrSpawn               = errors.New("failed to spawn process")
	ErrTimeout             = errors.New("process did not complete before the timeout expired")
)

// Command describes a single tool invocation.
type Command struct {
	// Executable is a path, a glob pattern matching exactly one file, or a bare name looked up on PATH.
	Executable string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Args are passed to the child verbatim, without shell interpretation.
	Args []string

	// OnLine, when set, receives every standard output line in order before Wait returns.
	OnLine func(line string)
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Executable
	}

	return c.Executable + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of a finished (or abandoned) process.
type Result struct {
	// ExitCode is the child's exit status, or one of the negative Exit* sentinels.
	ExitCode int

	// Err explains a negative ExitCode. Nil when the child ran to completion.
	Err error

	lines  []string
	stderr []string
}

// NewResult builds a Result from pre-captured output, for Runner fakes.
func NewResult(exitCode int, lines ...string) Result {
	return Result{ExitCode: exitCode, lines: lines}
}

// WithStderr returns a copy of r carrying the given standard error lines, for Runner fakes.
func (r Result) WithStderr(lines ...string) Result {
	r.stderr = lines

	return r
}

// Launched reports whether the child started and exited on its own.
func (r Result) Launched() bool {
	return r.Err == nil
}

// Lines yields the captured standard output lines in production order.
func (r Result) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range r.lines {
			if !yield(line) {
				return
			}
		}
	}
}

// LineCount returns the number of captured standard output lines.
func (r Result) LineCount() int {
	return len(r.lines)
}

// Stderr returns up to the last few hundred standard error lines.
func (r Result) Stderr() []string {
	return r.stderr
}

// Runner runs a command to completion with a timeout.
type Runner interface {
	Run(ctx context.Context, cmd Command, timeout time.Duration) Result
}

// Exec is the Runner backed by os/exec.
type Exec struct {
	Logger *slog.Logger
}

// NewExec creates an os/exec backed runner.
func NewExec(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}

	return &Exec{Logger: logger}
}

// Run starts cmd and waits for it.
func (e *Exec) Run(ctx context.Context, cmd Command, timeout time.Duration) Result {
	return e.Start(ctx, cmd).Wait(timeout)
}

// Process is a running child. Obtain one with Exec.Start.
type Process struct {
	cmd    *exec.Cmd
	done   chan struct{}
	output sync.WaitGroup

	mu     sync.Mutex
	lines  []string
	stderr []string

	// emit serialises OnLine calls with abandonment on timeout.
	emit      sync.Mutex
	abandoned bool

	failed Result
}

// Start resolves and spawns cmd. Launch failures are reported by Wait.
func (e *Exec) Start(ctx context.Context, cmd Command) *Process {
	executable, code, err := ResolveExecutable(cmd.Executable)
	if err != nil {
		return &Process{failed: Result{ExitCode: code, Err: err}}
	}

	dir, err := resolveDir(cmd.Dir)
	if err != nil {
		return &Process{failed: Result{ExitCode: ExitMissingDirectory, Err: err}}
	}

	child := exec.CommandContext(ctx, executable, cmd.Args...) //nolint:gosec // tool paths come from validated configuration
	child.Dir = dir

	stdout, err := child.StdoutPipe()
	if err != nil {
		return &Process{failed: Result{ExitCode: ExitSpawnFailed, Err: fmt.Errorf("%w: %w", ErrSpawn, err)}}
	}

	stderr, err := child.StderrPipe()
	if err != nil {
		return &Process{failed: Result{ExitCode: ExitSpawnFailed, Err: fmt.Errorf("%w: %w", ErrSpawn, err)}}
	}

	e.Logger.DebugContext(ctx, "spawning", "command", executable+" "+strings.Join(cmd.Args, " "), "dir", dir)

	startErr := child.Start()
	if startErr != nil {
		e.Logger.ErrorContext(ctx, "exception while spawning", "executable", executable, "error", startErr)

		return &Process{failed: Result{ExitCode: ExitSpawnFailed, Err: fmt.Errorf("%w %s: %w", ErrSpawn, executable, startErr)}}
	}

	proc := &Process{cmd: child, done: make(chan struct{})}

	proc.output.Add(2)

	go proc.capture(stdout, cmd.OnLine, false)
	go proc.capture(stderr, nil, true)

	go func() {
		proc.output.Wait()

		_ = child.Wait()

		close(proc.done)
	}()

	return proc
}

func (p *Process) capture(r io.Reader, onLine func(string), isStderr bool) {
	defer p.output.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if isStderr {
			p.appendStderr(line)

			continue
		}

		p.mu.Lock()
		p.lines = append(p.lines, line)
		p.mu.Unlock()

		if onLine != nil {
			p.emitLine(onLine, line)
		}
	}
}

func (p *Process) emitLine(onLine func(string), line string) {
	p.emit.Lock()
	defer p.emit.Unlock()

	if !p.abandoned {
		onLine(line)
	}
}

// abandon stops OnLine callbacks. It returns once any callback in flight has finished.
func (p *Process) abandon() {
	p.emit.Lock()
	p.abandoned = true
	p.emit.Unlock()
}

func (p *Process) appendStderr(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.stderr) == maxStderrLines {
		p.stderr = p.stderr[1:]
	}

	p.stderr = append(p.stderr, line)
}

// Wait blocks until the child exits or timeout elapses. A zero timeout waits forever.
// On timeout the child is killed and abandoned, and ExitTimeout is returned;
// OnLine is not called after Wait returns.
func (p *Process) Wait(timeout time.Duration) Result {
	if p.cmd == nil {
		return p.failed
	}

	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	select {
	case <-p.done:
	case <-expired:
		_ = p.cmd.Process.Kill()
		p.abandon()

		return p.snapshot(ExitTimeout, ErrTimeout)
	}

	code := p.cmd.ProcessState.ExitCode()
	if code < 0 {
		// Killed by a signal, typically context cancellation.
		return p.snapshot(ExitSpawnFailed, fmt.Errorf("%w: %s", ErrSpawn, p.cmd.ProcessState.String()))
	}

	return p.snapshot(code, nil)
}

func (p *Process) snapshot(code int, err error) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Result{
		ExitCode: code,
		Err:      err,
		lines:    append([]string(nil), p.lines...),
		stderr:   append([]string(nil), p.stderr...),
	}
}

func resolveDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
	}

	return dir, nil
}
