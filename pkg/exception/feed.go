package exception

import "errors"

var (
	ErrPacketTooShort   = errors.New("feed: packet shorter than header")
	ErrUnknownKind      = errors.New("feed: unknown message kind")
	ErrPayloadTruncated = errors.New("feed: payload truncated")
	ErrRingCapacity     = errors.New("feed: ring capacity must be a power of two")
	ErrPoolExhausted    = errors.New("feed: pool exhausted")
	ErrFeedStale        = errors.New("feed: stale, snapshot required")
)
