package toolchain

// LocateWith exposes locate with a replaceable registry lookup.
func LocateWith(opts Options, lookup func() (string, error)) (Tools, error) {
	return locate(opts, lookup)
}
