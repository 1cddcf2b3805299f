package recovery

import (
	"github.com/yanun0323/logs"

	"main/internal/sequencer"
)

// Sender is the datagram primitive the channel writes requests to.
type Sender interface {
	Send(b []byte) error
}

// Channel turns sequencer callbacks into recovery-wire requests. Requests
// are fire-and-forget: the satisfied range comes back in-band on the
// primary feed and closes the gap naturally, so a lost request is simply
// retried by the sequencer's maintenance pass.
type Channel struct {
	sender  Sender
	scratch []byte
}

// NewChannel creates a recovery channel over the given sender. A nil sender
// yields a channel that only logs, which is enough for bench setups without
// a recovery service.
func NewChannel(sender Sender) *Channel {
	return &Channel{
		sender:  sender,
		scratch: make([]byte, 0, requestSize),
	}
}

// RequestRetransmission asks for the missing range of a gap-fill request.
func (c *Channel) RequestRetransmission(req sequencer.GapFillRequest) {
	logs.Warnf("gap detected: sequences %d to %d (retry %d)", req.StartSeq, req.EndSeq, req.RetryCount)
	if c == nil || c.sender == nil {
		return
	}
	c.scratch = EncodeRequest(c.scratch[:0], Request{
		Kind:     KindRetransmit,
		StartSeq: req.StartSeq,
		EndSeq:   req.EndSeq,
	})
	if err := c.sender.Send(c.scratch); err != nil {
		logs.Errorf("send retransmit request, err: %+v", err)
	}
}

// RequestSnapshot signals that the feed went stale and incremental recovery
// is off the table.
func (c *Channel) RequestSnapshot() {
	logs.Errorf("feed stale: requesting snapshot")
	if c == nil || c.sender == nil {
		return
	}
	c.scratch = EncodeRequest(c.scratch[:0], Request{Kind: KindSnapshot})
	if err := c.sender.Send(c.scratch); err != nil {
		logs.Errorf("send snapshot request, err: %+v", err)
	}
}
