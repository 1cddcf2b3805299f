//go:build !amd64 || noasm

package ring

// Relax is a no-op on targets without a dedicated pause hint.
func Relax() {}
