//go:build windows

package toolchain

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const (
	sdkRegistryKey   = `SOFTWARE\WOW6432Node\Microsoft\Microsoft SDKs\Windows\v10.0`
	sdkRegistryValue = "InstallationFolder"
)

func registrySDKDir() (string, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, sdkRegistryKey, registry.QUERY_VALUE)
	if err != nil {
		return "", fmt.Errorf("open HKLM\\%s: %w", sdkRegistryKey, err)
	}
	defer key.Close()

	dir, _, err := key.GetStringValue(sdkRegistryValue)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", sdkRegistryValue, err)
	}

	return dir, nil
}
