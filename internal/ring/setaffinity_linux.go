//go:build linux

package ring

import (
	"syscall"
	"unsafe"
)

// Pre-computed one-word affinity masks for logical CPUs 0-63. Read-only data,
// so pinning allocates nothing. CPUs beyond 63 are ignored.
var cpuMasks = func() (m [64][1]uintptr) {
	for i := range m {
		m[i][0] = 1 << uint(i)
	}
	return m
}()

// SetAffinity pins the current OS thread to the given logical CPU. The caller
// must hold runtime.LockOSThread. Errors are swallowed: under cgroup or
// container restrictions the call may fail, and the fallback is no pin.
func SetAffinity(cpu int) {
	if cpu < 0 || cpu >= len(cpuMasks) {
		return
	}
	mask := &cpuMasks[cpu]
	_, _, _ = syscall.RawSyscall(
		syscall.SYS_SCHED_SETAFFINITY,
		0, // pid 0: current thread
		uintptr(unsafe.Sizeof(mask[0])),
		uintptr(unsafe.Pointer(mask)),
	)
}
