// Package toolchain locates the source server support tools.
package toolchain

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Tool file names inside the support directory.
const (
	SrcToolName = "srctool.exe"
	PdbStrName  = "pdbstr.exe"
)

// SDKDirEnv overrides the registry lookup of the SDK installation folder.
const SDKDirEnv = "WindowsSdkDir"

// Sentinel errors.
var (
	ErrSDKNotFound        = errors.New("windows SDK installation folder not found")
	ErrSupportDirMissing  = errors.New("could not find source server support folder")
	ErrToolMissing        = errors.New("could not find tool in support folder")
	errRegistryNotPresent = errors.New("registry lookup not supported on this platform")
)

// Options select where the tools come from. Explicit tool paths win over the SDK folder.
type Options struct {
	SDKDir  string
	SrcTool string
	PdbStr  string
}

// Tools are the validated absolute tool paths.
type Tools struct {
	SupportDir string
	SrcTool    string
	PdbStr     string
}

// sdkLookup finds the SDK installation folder; replaced in tests.
type sdkLookup func() (string, error)

// Locate validates the environment and returns the tool paths.
func Locate(opts Options) (Tools, error) {
	return locate(opts, registrySDKDir)
}

func locate(opts Options, lookup sdkLookup) (Tools, error) {
	var tools Tools

	if opts.SrcTool == "" || opts.PdbStr == "" {
		supportDir, err := findSupportDir(opts.SDKDir, lookup)
		if err != nil {
			return Tools{}, err
		}

		tools.SupportDir = supportDir

		if opts.SrcTool == "" {
			opts.SrcTool = filepath.Join(supportDir, SrcToolName)
		}

		if opts.PdbStr == "" {
			opts.PdbStr = filepath.Join(supportDir, PdbStrName)
		}
	}

	srcTool, err := existingFile(opts.SrcTool)
	if err != nil {
		return Tools{}, err
	}

	pdbStr, err := existingFile(opts.PdbStr)
	if err != nil {
		return Tools{}, err
	}

	tools.SrcTool = srcTool
	tools.PdbStr = pdbStr

	return tools, nil
}

// SupportDir is where the SDK keeps the source server tools.
func SupportDir(sdkDir string) string {
	return filepath.Join(sdkDir, "Debuggers", "x64", "srcsrv")
}

func findSupportDir(sdkDir string, lookup sdkLookup) (string, error) {
	if sdkDir == "" {
		sdkDir = os.Getenv(SDKDirEnv)
	}

	if sdkDir == "" {
		found, err := lookup()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrSDKNotFound, err)
		}

		sdkDir = found
	}

	if sdkDir == "" {
		return "", ErrSDKNotFound
	}

	dir, err := filepath.Abs(SupportDir(sdkDir))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSupportDirMissing, err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrSupportDirMissing, dir)
	}

	return dir, nil
}

func existingFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrToolMissing, path, err)
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrToolMissing, abs)
	}

	return abs, nil
}
