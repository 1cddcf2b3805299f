package feed

import (
	"runtime"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/clock"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ring"
	"main/pkg/exception"
)

// Handler receives each market event in sequence order. It runs on the
// consumer thread; a slow handler shows up as ring-full drops on the ingest
// side, never as back-pressure on the wire.
type Handler interface {
	OnMarketEvent(ev model.MarketEvent)
}

// ConsumerConfig carries the consumer thread's startup constants.
type ConsumerConfig struct {
	Core int
}

// Consumer is the strategy-facing half of the pipeline: it drains the ring,
// measures tick-to-trade latency, and dispatches events.
type Consumer struct {
	cfg     ConsumerConfig
	events  *ring.Ring[model.MarketEvent]
	handler Handler
	metrics *obs.Metrics
	run     *obs.RunFlag
}

// NewConsumer wires the consumer loop.
func NewConsumer(
	cfg ConsumerConfig,
	events *ring.Ring[model.MarketEvent],
	handler Handler,
	metrics *obs.Metrics,
	run *obs.RunFlag,
) (*Consumer, error) {
	if events == nil || handler == nil || metrics == nil || run == nil {
		return nil, exception.ErrNilInstance
	}
	return &Consumer{
		cfg:     cfg,
		events:  events,
		handler: handler,
		metrics: metrics,
		run:     run,
	}, nil
}

// Run pins the current goroutine to its core and drains events until the
// run flag clears.
func (c *Consumer) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ring.SetAffinity(c.cfg.Core)

	logs.Infof("consumer loop started on core %d", c.cfg.Core)

	for c.run.IsRunning() {
		c.step()
	}

	logs.Info("consumer loop stopped")
}

func (c *Consumer) step() {
	ev, ok := c.events.TryPop()
	if !ok {
		ring.Relax()
		return
	}
	c.metrics.ObserveTickToTrade(time.Duration(clock.Now() - ev.RecvTsNano))
	c.handler.OnMarketEvent(ev)
}
