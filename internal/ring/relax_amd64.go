//go:build amd64 && !noasm

package ring

// Relax executes the x86_64 PAUSE instruction so busy-wait loops back off
// politely while staying in userspace.
//
//go:noescape
func Relax()
