// Package depot resolves client workspace paths to depot paths and synced revisions.
package depot

import (
	"context"
	"strings"
)

// HaveMarker asks the server for whatever revision is synced to the workspace.
const HaveMarker = "#have"

// FileMapping pairs a client-local path with its depot path.
type FileMapping struct {
	LocalPath string
	DepotPath string
}

// FileRevision is a depot file at a concrete revision, as reported by the server.
type FileRevision struct {
	DepotPath string

	// Revision keeps the server's leading '#' marker, e.g. "#12".
	Revision string
}

// Revision is a fully resolved source file: where it lives locally, where it
// lives in the depot, and which revision the workspace has synced.
type Revision struct {
	LocalPath string `json:"local_path" yaml:"local_path"`
	DepotPath string `json:"depot_path" yaml:"depot_path"`
	Revision  string `json:"revision"   yaml:"revision"`
}

// Connection is an established version-control session.
// Entries the backend does not know about are omitted from results, never zero-filled.
type Connection interface {
	// MapToDepot maps client-local paths to depot paths.
	MapToDepot(ctx context.Context, localPaths []string) ([]FileMapping, error)

	// Files reports the concrete revision for each depot file spec (path plus revision marker).
	Files(ctx context.Context, specs []string) ([]FileRevision, error)

	// Port is the server address used by the debugger to fetch source.
	Port() string

	// WorkspaceRoot is the client root directory.
	WorkspaceRoot() string
}

// foldKey normalises a depot path for case-insensitive joins.
func foldKey(depotPath string) string {
	return strings.ToLower(depotPath)
}
