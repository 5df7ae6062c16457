package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// globMeta are the characters that make an executable name a pattern.
const globMeta = "*?["

// ResolveExecutable maps name to exactly one executable file.
// Names containing a path separator or glob metacharacters are matched against
// the file system; bare names are looked up on PATH. It returns the absolute
// path, or one of the negative Exit* codes with the matching error.
func ResolveExecutable(name string) (string, int, error) {
	if name == "" {
		return "", ExitMissingExecutable, fmt.Errorf("%w: empty name", ErrMissingExecutable)
	}

	if !strings.ContainsAny(name, globMeta) && !strings.ContainsAny(name, `/\`) {
		found, err := exec.LookPath(name)
		if err != nil {
			return "", ExitMissingExecutable, fmt.Errorf("%w: %s", ErrMissingExecutable, name)
		}

		return absolute(found), 0, nil
	}

	matches, err := filepath.Glob(name)
	if err != nil {
		return "", ExitMissingExecutable, fmt.Errorf("%w: %s: %w", ErrMissingExecutable, name, err)
	}

	var files []string

	for _, match := range matches {
		info, statErr := os.Stat(match)
		if statErr != nil || info.IsDir() {
			continue
		}

		files = append(files, match)
	}

	switch len(files) {
	case 0:
		return "", ExitMissingExecutable, fmt.Errorf("%w: %s", ErrMissingExecutable, absolute(name))
	case 1:
		return absolute(files[0]), 0, nil
	default:
		return "", ExitAmbiguousExecutable, fmt.Errorf("%w: %s matches %s", ErrAmbiguousExecutable, name, strings.Join(files, ", "))
	}
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return abs
}
