package depot

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
)

// DefaultBatchSize is the largest number of files sent to the server in one call.
const DefaultBatchSize = 100

// ErrResolve wraps a failed server call during resolution.
var ErrResolve = errors.New("revision resolution failed")

// Resolver turns local source paths into depot revisions in two batched phases.
type Resolver struct {
	Conn      Connection
	BatchSize int
	Logger    *slog.Logger
}

// NewResolver creates a resolver with the default batch size.
func NewResolver(conn Connection, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{Conn: conn, BatchSize: DefaultBatchSize, Logger: logger}
}

// Resolve returns the synced revision of each local path the server knows.
// The result may be shorter than the input. On a failed server call the
// revisions joined so far are returned together with an error wrapping ErrResolve.
func (r *Resolver) Resolve(ctx context.Context, localPaths []string) ([]Revision, error) {
	if len(localPaths) == 0 {
		return nil, nil
	}

	mappings, err := r.mapToDepot(ctx, localPaths)
	if err != nil {
		return nil, err
	}

	index := newDepotIndex(mappings)

	revisions, err := r.haveRevisions(ctx, mappings, index)

	r.Logger.InfoContext(ctx, fmt.Sprintf("... found %d files in Perforce.", len(revisions)))

	return revisions, err
}

func (r *Resolver) mapToDepot(ctx context.Context, localPaths []string) ([]FileMapping, error) {
	mappings := make([]FileMapping, 0, len(localPaths))

	for chunk := range Chunks(localPaths, r.batchSize()) {
		mapped, err := r.Conn.MapToDepot(ctx, chunk)
		if err != nil {
			return mappings, fmt.Errorf("%w: map %d paths: %w", ErrResolve, len(chunk), err)
		}

		for _, m := range mapped {
			if m.DepotPath == "" || m.LocalPath == "" {
				continue
			}

			mappings = append(mappings, m)
		}
	}

	return mappings, nil
}

func (r *Resolver) haveRevisions(ctx context.Context, mappings []FileMapping, index depotIndex) ([]Revision, error) {
	specs := make([]string, len(mappings))
	for i, m := range mappings {
		specs[i] = m.DepotPath + HaveMarker
	}

	var revisions []Revision

	for chunk := range Chunks(specs, r.batchSize()) {
		files, err := r.Conn.Files(ctx, chunk)
		if err != nil {
			return revisions, fmt.Errorf("%w: revisions for %d files: %w", ErrResolve, len(chunk), err)
		}

		for _, file := range files {
			local, ok := index.localPath(file.DepotPath)
			if !ok {
				r.Logger.DebugContext(ctx, "dropping revision without a mapping", "depot_path", file.DepotPath)

				continue
			}

			revisions = append(revisions, Revision{
				LocalPath: local,
				DepotPath: file.DepotPath,
				Revision:  file.Revision,
			})
		}
	}

	return revisions, nil
}

func (r *Resolver) batchSize() int {
	if r.BatchSize <= 0 {
		return DefaultBatchSize
	}

	return r.BatchSize
}

// depotIndex is the immutable depot path to local path table for one resolution.
type depotIndex map[string]string

func newDepotIndex(mappings []FileMapping) depotIndex {
	index := make(depotIndex, len(mappings))

	for _, m := range mappings {
		key := foldKey(m.DepotPath)
		if _, seen := index[key]; seen {
			continue
		}

		index[key] = m.LocalPath
	}

	return index
}

func (d depotIndex) localPath(depotPath string) (string, bool) {
	local, ok := d[foldKey(depotPath)]

	return local, ok
}

// Chunks yields consecutive sub-slices of items holding at most size elements.
func Chunks[T any](items []T, size int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if size <= 0 {
			size = len(items)
		}

		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}
}
