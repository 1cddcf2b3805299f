package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"

	"main/internal/archive"
	"main/internal/feed"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/pool"
	"main/internal/recovery"
	"main/internal/ring"
	"main/internal/sequencer"
	"main/internal/strategy"
	"main/internal/transport"
)

const statsInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		logs.Errorf("feedhandler: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "JSON config path (empty for defaults)")
	flag.Parse()

	cfg, err := ops.Load(*configPath)
	if err != nil {
		return err
	}

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Profiling.ApplicationName,
			ServerAddress:   cfg.Profiling.ServerAddress,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	metrics := obs.NewMetrics()
	runFlag := obs.NewRunFlag()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logs.Info("shutdown signal received")
		runFlag.Stop()
	}()

	receiver, err := transport.NewReceiver(cfg.Feed.Group, cfg.Feed.Port, cfg.Feed.RecvBuf)
	if err != nil {
		return err
	}
	defer receiver.Close()
	logs.Infof("listening on %s:%d", cfg.Feed.Group, cfg.Feed.Port)

	var recoverySender *transport.Sender
	if cfg.Recovery.Addr != "" {
		recoverySender, err = transport.NewSender(cfg.Recovery.Addr, cfg.Recovery.Port, 0)
		if err != nil {
			return err
		}
		defer recoverySender.Close()
		logs.Infof("recovery channel at %s:%d", cfg.Recovery.Addr, cfg.Recovery.Port)
	}
	channel := recoveryChannel(recoverySender)

	events, err := ring.New[model.MarketEvent](cfg.Feed.RingCapacity)
	if err != nil {
		return err
	}
	slab := pool.New[model.MarketEvent](cfg.Feed.EventPool)

	seq := sequencer.NewManager(cfg.Sequencer, metrics,
		channel.RequestRetransmission,
		channel.RequestSnapshot,
	)

	engine := strategy.NewEngine(cfg.Strategy.LargeTradeQty)

	var handler feed.Handler = engine
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.NewArchiver(cfg.Archive, metrics)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		archiver.Start(ctx)
		defer func() { _ = archiver.Close() }()
		handler = &archivingHandler{strategy: engine, archiver: archiver}
		logs.Info("tick archiver enabled")
	}

	ingest, err := feed.NewIngest(
		feed.IngestConfig{Core: cfg.Feed.IngestCore, MaintenanceInterval: cfg.Feed.MaintenanceInterval},
		receiver, seq, events, slab, metrics, runFlag,
	)
	if err != nil {
		return err
	}
	consumer, err := feed.NewConsumer(
		feed.ConsumerConfig{Core: cfg.Feed.ConsumerCore},
		events, handler, metrics, runFlag,
	)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ingest.Run()
	}()
	go func() {
		defer wg.Done()
		consumer.Run()
	}()

	stopStats := make(chan struct{})
	go statsLoop(metrics, stopStats)

	wg.Wait()
	close(stopStats)

	dumpStats(metrics)
	poolStats := slab.GetStats()
	logs.Infof("event pool: alloc=%d dealloc=%d inuse=%d fail=%d",
		poolStats.Allocations, poolStats.Deallocations, poolStats.InUse, poolStats.Failures)
	logs.Infof("strategy saw %d events, %d signals", engine.Events(), engine.Signals())
	return nil
}

// archivingHandler fans each event to the strategy and the archive queue.
type archivingHandler struct {
	strategy *strategy.Engine
	archiver *archive.Archiver
}

func (h *archivingHandler) OnMarketEvent(ev model.MarketEvent) {
	h.strategy.OnMarketEvent(ev)
	h.archiver.Offer(ev)
}

func recoveryChannel(sender *transport.Sender) *recovery.Channel {
	if sender == nil {
		return recovery.NewChannel(nil)
	}
	return recovery.NewChannel(sender)
}

func statsLoop(metrics *obs.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			dumpStats(metrics)
		}
	}
}

func dumpStats(metrics *obs.Metrics) {
	snap := metrics.GetSnapshot()
	if snap.PacketsReceived == 0 {
		return
	}
	logs.Infof(
		"stats: recv=%d proc=%d drop=%d dup=%d gaps=%d filled=%d ooo=%d reseq=%d overflow=%d next=%d state=%d latency(min/avg/max)=%s/%s/%s",
		snap.PacketsReceived, snap.PacketsProcessed, snap.PacketsDropped,
		snap.Duplicates, snap.GapsDetected, snap.GapsFilled,
		snap.OutOfOrder, snap.Resequenced, snap.DroppedOverflow,
		snap.NextExpected, snap.FeedState,
		snap.TickToTrade.Min, snap.TickToTrade.Avg, snap.TickToTrade.Max,
	)
}
