package sequencer

// FeedState tracks where the feed is in its recovery lifecycle.
type FeedState uint8

const (
	FeedStateInitial FeedState = iota
	FeedStateLive
	FeedStateRecovering
	FeedStateStale
)

func (s FeedState) String() string {
	switch s {
	case FeedStateInitial:
		return "initial"
	case FeedStateLive:
		return "live"
	case FeedStateRecovering:
		return "recovering"
	case FeedStateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result tells the ingest loop what to do with a processed packet.
type Result uint8

const (
	// ResultDeliver means the packet is next in sequence: normalize and
	// publish it, then drain the reorder buffer.
	ResultDeliver Result = iota
	// ResultBuffered means the packet arrived early and is parked in the
	// reorder buffer.
	ResultBuffered
	// ResultDrop means the packet is a duplicate, stale, or otherwise dead.
	ResultDrop
)

// GapFillRequest describes a missing sequence range handed to the recovery
// channel. Retries reuse the same request with a bumped count.
type GapFillRequest struct {
	StartSeq      uint64
	EndSeq        uint64
	RequestTsNano int64
	RetryCount    uint8
}
