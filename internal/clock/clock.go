package clock

import "time"

// The process start is captured once so Now can ride the runtime's monotonic
// reading instead of the wall clock. Values are comparable across threads and
// never go backwards, which the gap timeouts and latency stats rely on.
var (
	base     = time.Now()
	baseNano = base.UnixNano()
)

// Now returns a monotonic timestamp in nanoseconds.
func Now() int64 {
	return baseNano + int64(time.Since(base))
}
