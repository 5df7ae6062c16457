package perforce

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Workspace is a client spec as listed by "p4 clients".
type Workspace struct {
	Name  string
	Root  string
	Owner string
	Host  string
}

// Workspaces lists the client specs owned by the current user.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	args := []string{"clients"}
	if c.Settings.User != "" {
		args = append(args, "-u", c.Settings.User)
	}

	records, err := c.tagged(ctx, args...)
	if err != nil {
		return nil, err
	}

	workspaces := make([]Workspace, 0, len(records))

	for _, rec := range records {
		workspaces = append(workspaces, Workspace{
			Name:  rec["client"],
			Root:  rec["Root"],
			Owner: rec["Owner"],
			Host:  rec["Host"],
		})
	}

	return workspaces, nil
}

// FindWorkspace returns the first workspace owned by the current user on host
// whose root contains dir. Comparisons ignore case.
func (c *Client) FindWorkspace(ctx context.Context, dir, host string) (Workspace, error) {
	c.Logger.InfoContext(ctx, fmt.Sprintf(" .. looking for workspace on '%s' owned by '%s' which contains the folder '%s'",
		host, c.Settings.User, dir))

	workspaces, err := c.Workspaces(ctx)
	if err != nil {
		return Workspace{}, err
	}

	for _, ws := range workspaces {
		c.Logger.DebugContext(ctx, fmt.Sprintf(" .... checking workspace: '%s' on host: '%s' with owner: '%s' and root: '%s'",
			ws.Name, ws.Host, ws.Owner, ws.Root))

		if ws.Contains(dir, c.Settings.User, host) {
			return ws, nil
		}
	}

	return Workspace{}, fmt.Errorf("%w: on '%s' containing '%s'", ErrNoWorkspace, host, dir)
}

// Contains reports whether ws is owned by user on host and its root prefixes dir.
// A workspace without a host matches any host.
func (ws Workspace) Contains(dir, user, host string) bool {
	if !rootContains(ws.Root, dir) {
		return false
	}

	if !strings.EqualFold(ws.Owner, user) {
		return false
	}

	return ws.Host == "" || strings.EqualFold(ws.Host, host)
}

func rootContains(root, dir string) bool {
	return root != "" && strings.HasPrefix(strings.ToLower(dir), strings.ToLower(root))
}

// LocalHost is the machine name workspaces are matched against.
func LocalHost() string {
	if name := os.Getenv("COMPUTERNAME"); name != "" {
		return name
	}

	name, err := os.Hostname()
	if err != nil {
		return ""
	}

	return name
}

// LoadP4Config walks up from dir looking for a file called name and reads
// P4PORT, P4USER, P4CLIENT and P4HOST from it. An empty name uses the P4CONFIG
// environment variable. It returns the zero Settings and an empty path when
// no file is found.
func LoadP4Config(dir, name string) (Settings, string, error) {
	if name == "" {
		name = os.Getenv("P4CONFIG")
	}

	if name == "" {
		return Settings{}, "", nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return Settings{}, "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	for current := abs; ; current = filepath.Dir(current) {
		candidate := filepath.Join(current, name)

		info, statErr := os.Stat(candidate)
		if statErr == nil && !info.IsDir() {
			values, readErr := godotenv.Read(candidate)
			if readErr != nil {
				return Settings{}, candidate, fmt.Errorf("read %s: %w", candidate, readErr)
			}

			return settingsFrom(values), candidate, nil
		}

		if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
			return Settings{}, "", fmt.Errorf("stat %s: %w", candidate, statErr)
		}

		if filepath.Dir(current) == current {
			return Settings{}, "", nil
		}
	}
}

// Open connects with the default connection and settles on a workspace whose
// root contains dir. A workspace already set is kept when it contains dir;
// otherwise the user's workspaces are searched. ErrNoWorkspace is returned
// when none contains dir.
func Open(ctx context.Context, c *Client, dir string) error {
	c.Logger.InfoContext(ctx, "Attempting to get default Perforce connection")

	err := c.Defaults(ctx)
	if err != nil {
		return err
	}

	if c.Settings.Client != "" {
		err = c.Connect(ctx)

		switch {
		case err == nil && rootContains(c.root, dir):
			return nil
		case err == nil:
			c.Logger.InfoContext(ctx, fmt.Sprintf(" .. workspace '%s' with root '%s' does not contain '%s'",
				c.Settings.Client, c.root, dir))
		case errors.Is(err, ErrNoWorkspace):
			c.Logger.InfoContext(ctx, fmt.Sprintf(" .. workspace '%s' is unknown", c.Settings.Client))
		default:
			return err
		}

		c.Disconnect()
		c.UseWorkspace(Workspace{})
	}

	err = c.Connect(ctx)
	if err != nil {
		return err
	}

	c.Logger.InfoContext(ctx, fmt.Sprintf(" .. found server '%s' with user '%s'", c.Settings.Port, c.Settings.User))

	host := c.Settings.Host
	if host == "" {
		host = LocalHost()
	}

	ws, err := c.FindWorkspace(ctx, dir, host)
	if err != nil {
		c.Disconnect()

		return err
	}

	c.Logger.InfoContext(ctx, fmt.Sprintf(" .. found workspace '%s' with root '%s'", ws.Name, ws.Root))

	c.UseWorkspace(ws)

	return nil
}
