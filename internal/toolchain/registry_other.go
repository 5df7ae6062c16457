//go:build !windows

package toolchain

func registrySDKDir() (string, error) {
	return "", errRegistryNotPresent
}
