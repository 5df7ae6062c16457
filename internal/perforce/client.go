// Package perforce talks to a Perforce server through the p4 command line client.
package perforce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sumatoshi-tech/srcindex/internal/depot"
	"github.com/Sumatoshi-tech/srcindex/pkg/process"
)

// DefaultExecutable is the p4 client looked up on PATH.
const DefaultExecutable = "p4"

// DefaultTimeout bounds a single p4 invocation.
const DefaultTimeout = 2 * time.Minute

// Sentinel errors.
var (
	ErrConnection   = errors.New("perforce connection failed")
	ErrLogin        = errors.New("perforce login required")
	ErrNotConnected = errors.New("not connected to a perforce server")
	ErrNoWorkspace  = errors.New("no perforce workspace found")
)

const (
	connectFailedMarker = "Connect to server failed"
	loginMarker         = "P4PASSWD"
	unknownClient       = "*unknown*"
)

// Settings identify the server, user and workspace.
// Empty fields fall back to the p4 client's own environment.
type Settings struct {
	Port   string
	User   string
	Client string
	Host   string
}

// Merge returns s with every non-empty field of over applied on top.
func (s Settings) Merge(over Settings) Settings {
	if over.Port != "" {
		s.Port = over.Port
	}

	if over.User != "" {
		s.User = over.User
	}

	if over.Client != "" {
		s.Client = over.Client
	}

	if over.Host != "" {
		s.Host = over.Host
	}

	return s
}

// String renders the settings for log lines.
func (s Settings) String() string {
	return fmt.Sprintf("Port: '%s' User: '%s' Workspace: '%s'", s.Port, s.User, s.Client)
}

// Client is a p4 backed depot.Connection.
type Client struct {
	Runner     process.Runner
	Executable string
	Settings   Settings
	Timeout    time.Duration
	Logger     *slog.Logger

	root      string
	connected bool
}

var _ depot.Connection = (*Client)(nil)

// NewClient creates a disconnected client.
func NewClient(runner process.Runner, executable string, settings Settings, logger *slog.Logger) *Client {
	if executable == "" {
		executable = DefaultExecutable
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		Runner:     runner,
		Executable: executable,
		Settings:   settings,
		Timeout:    DefaultTimeout,
		Logger:     logger,
	}
}

// Defaults fills empty settings from "p4 set", the client's registry and
// environment view of P4PORT, P4USER, P4CLIENT and P4HOST.
func (c *Client) Defaults(ctx context.Context) error {
	result := c.run(ctx, false, "set", "-q")

	err := c.check(result)
	if err != nil {
		return err
	}

	var sb strings.Builder

	for line := range result.Lines() {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	values, parseErr := godotenv.Unmarshal(sb.String())
	if parseErr != nil {
		return fmt.Errorf("%w: parse p4 set output: %w", ErrConnection, parseErr)
	}

	c.Settings = settingsFrom(values).Merge(c.Settings)

	return nil
}

// Connect checks the server is reachable and records the user, port and,
// when a workspace is set, its root.
func (c *Client) Connect(ctx context.Context) error {
	c.Logger.InfoContext(ctx, fmt.Sprintf("Attempting connection to '%s' with user '%s' using workspace '%s'",
		c.Settings.Port, c.Settings.User, c.Settings.Client))

	result := c.run(ctx, true, "info")

	err := c.check(result)
	if err != nil {
		return err
	}

	records := ParseTagged(collect(result))
	if len(records) == 0 {
		return fmt.Errorf("%w: no response from %s", ErrConnection, c.Executable)
	}

	info := records[0]

	if c.Settings.User == "" {
		c.Settings.User = info["userName"]
	}

	if c.Settings.Port == "" {
		c.Settings.Port = info["serverAddress"]
	}

	if c.Settings.Client != "" {
		name := info["clientName"]
		if name == "" || name == unknownClient {
			return fmt.Errorf("%w: client '%s' is unknown to %s", ErrNoWorkspace, c.Settings.Client, c.Settings.Port)
		}

		c.root = info["clientRoot"]
	}

	c.connected = true

	return nil
}

// Disconnect forgets the session. The p4 client keeps no connection open between calls.
func (c *Client) Disconnect() {
	c.connected = false
}

// IsConnected reports whether Connect succeeded and Disconnect has not been called.
func (c *Client) IsConnected() bool {
	return c.connected
}

// UseWorkspace switches the client to ws for later calls.
func (c *Client) UseWorkspace(ws Workspace) {
	c.Settings.Client = ws.Name
	c.root = ws.Root
}

// MapToDepot runs "p4 where". Paths outside the client view are dropped.
func (c *Client) MapToDepot(ctx context.Context, localPaths []string) ([]depot.FileMapping, error) {
	records, err := c.tagged(ctx, append([]string{"where"}, localPaths...)...)
	if err != nil {
		return nil, err
	}

	mappings := make([]depot.FileMapping, 0, len(records))

	for _, rec := range records {
		if rec.Has("unmap") || rec["depotFile"] == "" || rec["path"] == "" {
			continue
		}

		mappings = append(mappings, depot.FileMapping{LocalPath: rec["path"], DepotPath: rec["depotFile"]})
	}

	return mappings, nil
}

// Files runs "p4 files". Specs with no matching revision are dropped.
func (c *Client) Files(ctx context.Context, specs []string) ([]depot.FileRevision, error) {
	records, err := c.tagged(ctx, append([]string{"files"}, specs...)...)
	if err != nil {
		return nil, err
	}

	revisions := make([]depot.FileRevision, 0, len(records))

	for _, rec := range records {
		if rec["depotFile"] == "" || rec["rev"] == "" {
			continue
		}

		revisions = append(revisions, depot.FileRevision{DepotPath: rec["depotFile"], Revision: "#" + rec["rev"]})
	}

	return revisions, nil
}

// Port returns the server address.
func (c *Client) Port() string {
	return c.Settings.Port
}

// WorkspaceRoot returns the root of the current workspace.
func (c *Client) WorkspaceRoot() string {
	return c.root
}

func (c *Client) tagged(ctx context.Context, args ...string) ([]Record, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	result := c.run(ctx, true, args...)

	err := c.check(result)
	if err != nil {
		return nil, err
	}

	return ParseTagged(collect(result)), nil
}

func (c *Client) run(ctx context.Context, tagged bool, args ...string) process.Result {
	global := make([]string, 0, len(args)+9)

	if tagged {
		global = append(global, "-ztag")
	}

	for _, opt := range []struct{ flag, value string }{
		{"-p", c.Settings.Port},
		{"-u", c.Settings.User},
		{"-c", c.Settings.Client},
		{"-H", c.Settings.Host},
	} {
		if opt.value != "" {
			global = append(global, opt.flag, opt.value)
		}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return c.Runner.Run(ctx, process.Command{
		Executable: c.Executable,
		Dir:        ".",
		Args:       append(global, args...),
	}, timeout)
}

// check maps launch failures and server-level diagnostics to errors.
// Per-file diagnostics such as "file(s) not in client view" are not errors.
func (c *Client) check(result process.Result) error {
	if result.ExitCode < 0 {
		return fmt.Errorf("%w: %s exited with code %d: %w", ErrConnection, c.Executable, result.ExitCode, result.Err)
	}

	for _, line := range result.Stderr() {
		if strings.Contains(line, connectFailedMarker) {
			return fmt.Errorf("%w: %s", ErrConnection, line)
		}

		if strings.Contains(line, loginMarker) {
			return fmt.Errorf("%w: %s", ErrLogin, line)
		}
	}

	return nil
}

func collect(result process.Result) []string {
	lines := make([]string, 0, result.LineCount())

	for line := range result.Lines() {
		lines = append(lines, line)
	}

	return lines
}

func settingsFrom(values map[string]string) Settings {
	return Settings{
		Port:   values["P4PORT"],
		User:   values["P4USER"],
		Client: values["P4CLIENT"],
		Host:   values["P4HOST"],
	}
}
