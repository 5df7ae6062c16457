package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtension is the symbol file extension searched for.
const DefaultExtension = ".pdb"

// Discover returns the symbol files to index: the named file when name is
// set and exists, otherwise every file under root whose extension matches ext
// ignoring case. Paths are absolute and sorted.
func Discover(logger *slog.Logger, name, root, ext string) ([]string, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	if name != "" {
		return discoverNamed(logger, name)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}

	var files []string

	walkErr := filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path != absRoot && errors.Is(err, fs.ErrPermission) {
				logger.Warn("... skipping unreadable folder", "path", path)

				return fs.SkipDir
			}

			return err
		}

		if !entry.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			files = append(files, path)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("scan %s: %w", absRoot, walkErr)
	}

	slices.Sort(files)

	logger.Info(fmt.Sprintf("... found %d symbol files.", len(files)))

	return files, nil
}

func discoverNamed(logger *slog.Logger, name string) ([]string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		logger.Warn(fmt.Sprintf("... symbol file not found: %s", abs))

		return []string{}, nil
	}

	logger.Info(fmt.Sprintf("... found symbol file: %s", abs))

	return []string{abs}, nil
}
