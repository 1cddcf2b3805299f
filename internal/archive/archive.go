package archive

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/pkg/conn"
)

// Config controls the tick archiver.
type Config struct {
	Enabled       bool
	Conn          conn.Option
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 65536
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 512
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	return c
}

// TickRow is the persisted form of a delivered market event.
type TickRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Sequence     uint64 `gorm:"index"`
	SymbolID     uint32 `gorm:"index"`
	Kind         uint8
	Price        uint64
	Quantity     uint32
	Side         uint8
	BidPrice     uint64
	AskPrice     uint64
	BidSize      uint32
	AskSize      uint32
	SourceTsNano int64
	RecvTsNano   int64
}

// TableName pins the table the archiver writes to.
func (TickRow) TableName() string { return "ticks" }

type rowWriter interface {
	Write(rows []TickRow) error
}

type gormWriter struct {
	client *conn.Client
}

func (w gormWriter) Write(rows []TickRow) error {
	return w.client.DB().Create(&rows).Error
}

// Archiver persists delivered events into Postgres without ever touching
// the hot path: the consumer thread offers events to a bounded queue and
// moves on; a background goroutine batches and writes them. Shedding at the
// queue is acceptable by design, losing an archived tick never loses a
// trade decision.
type Archiver struct {
	cfg     Config
	queue   *bus.Queue
	client  *conn.Client
	writer  rowWriter
	metrics *obs.Metrics

	mu    sync.Mutex
	batch []TickRow

	wg   sync.WaitGroup
	done chan struct{}
}

// NewArchiver dials Postgres and prepares the tick table.
func NewArchiver(cfg Config, metrics *obs.Metrics) (*Archiver, error) {
	cfg = cfg.withDefaults()
	client, err := conn.New(cfg.Conn)
	if err != nil {
		return nil, errors.Wrap(err, "dial postgres")
	}
	if err := client.DB().AutoMigrate(&TickRow{}); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "migrate ticks table")
	}
	a := newArchiverWith(cfg, gormWriter{client: client}, metrics)
	a.client = client
	return a, nil
}

func newArchiverWith(cfg Config, writer rowWriter, metrics *obs.Metrics) *Archiver {
	cfg = cfg.withDefaults()
	return &Archiver{
		cfg:     cfg,
		queue:   bus.NewQueue(cfg.QueueSize),
		writer:  writer,
		metrics: metrics,
		batch:   make([]TickRow, 0, cfg.BatchSize),
		done:    make(chan struct{}),
	}
}

// Offer hands one event to the archiver. Never blocks; a full queue sheds
// the event and bumps the drop counter.
func (a *Archiver) Offer(ev model.MarketEvent) {
	if a == nil {
		return
	}
	if err := a.queue.TryPublish(ev); err != nil {
		a.metrics.IncArchiveDrops()
	}
}

// Start launches the drain and flush goroutines.
func (a *Archiver) Start(ctx context.Context) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.queue.Run(ctx, a.enqueue)
		a.flush()
	}()
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(a.cfg.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.done:
				return
			case <-ticker.C:
				a.flush()
			}
		}
	}()
}

// Close drains the queue, flushes the tail batch, and releases the
// connection.
func (a *Archiver) Close() error {
	a.queue.Close()
	close(a.done)
	a.wg.Wait()
	a.flush()
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *Archiver) enqueue(ev model.MarketEvent) {
	a.mu.Lock()
	a.batch = append(a.batch, rowFromEvent(ev))
	full := len(a.batch) >= a.cfg.BatchSize
	a.mu.Unlock()
	if full {
		a.flush()
	}
}

func (a *Archiver) flush() {
	a.mu.Lock()
	if len(a.batch) == 0 {
		a.mu.Unlock()
		return
	}
	rows := make([]TickRow, len(a.batch))
	copy(rows, a.batch)
	a.batch = a.batch[:0]
	a.mu.Unlock()

	if err := a.writer.Write(rows); err != nil {
		logs.Errorf("archive flush of %d rows, err: %+v", len(rows), err)
	}
}

func rowFromEvent(ev model.MarketEvent) TickRow {
	row := TickRow{
		Sequence:     ev.Sequence,
		SymbolID:     ev.SymbolID,
		Kind:         uint8(ev.Kind),
		SourceTsNano: ev.SourceTsNano,
		RecvTsNano:   ev.RecvTsNano,
	}
	switch ev.Kind {
	case enum.MessageKindQuote:
		row.BidPrice = ev.Quote.BidPrice
		row.AskPrice = ev.Quote.AskPrice
		row.BidSize = ev.Quote.BidSize
		row.AskSize = ev.Quote.AskSize
	default:
		row.Price = ev.Trade.Price
		row.Quantity = ev.Trade.Quantity
		row.Side = ev.Trade.Side
	}
	return row
}
