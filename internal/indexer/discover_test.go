package indexer_test

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/srcindex/internal/indexer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o600))
}

func TestDiscover_WalksTreeCaseInsensitive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdb"))
	touch(t, filepath.Join(root, "sub", "A.PDB"))
	touch(t, filepath.Join(root, "sub", "deep", "c.Pdb"))
	touch(t, filepath.Join(root, "sub", "readme.txt"))
	touch(t, filepath.Join(root, "game.pdb.bak"))

	files, err := indexer.Discover(quietLogger(), "", root, "")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "b.pdb"),
		filepath.Join(root, "sub", "A.PDB"),
		filepath.Join(root, "sub", "deep", "c.Pdb"),
	}, files)
}

func TestDiscover_CustomExtension(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pdb"))
	touch(t, filepath.Join(root, "a.sym"))

	files, err := indexer.Discover(quietLogger(), "", root, ".sym")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.sym")}, files)
}

func TestDiscover_EmptyTree(t *testing.T) {
	t.Parallel()

	files, err := indexer.Discover(quietLogger(), "", t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_NamedFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	named := filepath.Join(root, "only.pdb")
	touch(t, named)
	touch(t, filepath.Join(root, "other.pdb"))

	files, err := indexer.Discover(quietLogger(), named, root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{named}, files)
}

func TestDiscover_NamedFileMissing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	touch(t, filepath.Join(root, "other.pdb"))

	files, err := indexer.Discover(quietLogger(), filepath.Join(root, "gone.pdb"), root, "")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestDiscover_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := indexer.Discover(quietLogger(), "", filepath.Join(t.TempDir(), "nope"), "")
	require.Error(t, err)
}
