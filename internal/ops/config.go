package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"main/internal/archive"
	"main/internal/schema"
	"main/internal/sequencer"
	"main/pkg/conn"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Feed      FeedConfig      `json:"feed"`
	Sequencer SequencerConfig `json:"sequencer"`
	Recovery  RecoveryConfig  `json:"recovery"`
	Strategy  StrategyConfig  `json:"strategy"`
	Archive   ArchiveConfig   `json:"archive"`
	Profiling ProfilingConfig `json:"profiling"`
	Symbols   []SymbolConfig  `json:"symbols"`
}

// FeedConfig describes the transport and pipeline shape.
type FeedConfig struct {
	Group                 string `json:"group"`
	Port                  int    `json:"port"`
	RecvBuf               int    `json:"recvBuf"`
	RingCapacity          int    `json:"ringCapacity"`
	EventPool             int    `json:"eventPool"`
	IngestCore            int    `json:"ingestCore"`
	ConsumerCore          int    `json:"consumerCore"`
	MaintenanceIntervalMs int    `json:"maintenanceIntervalMs"`
}

// SequencerConfig describes the gap/duplicate handling constants.
type SequencerConfig struct {
	MaxGap          uint64 `json:"maxGap"`
	ReorderCapacity int    `json:"reorderCapacity"`
	DuplicateWindow int    `json:"duplicateWindow"`
	GapTimeoutMs    int    `json:"gapTimeoutMs"`
	MaxRetries      int    `json:"maxRetries"`
}

// RecoveryConfig points at the retransmission service. An empty address
// leaves the recovery channel in log-only mode.
type RecoveryConfig struct {
	Addr string `json:"addr"`
	Port int    `json:"port"`
}

// StrategyConfig tunes the sample strategy endpoint.
type StrategyConfig struct {
	LargeTradeQty uint32 `json:"largeTradeQty"`
}

// ArchiveConfig describes the optional Postgres tick archiver.
type ArchiveConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	User            string `json:"user"`
	Password        string `json:"password"`
	Database        string `json:"database"`
	SSLMode         string `json:"sslMode"`
	ConnString      string `json:"connString"`
	QueueSize       int    `json:"queueSize"`
	BatchSize       int    `json:"batchSize"`
	FlushIntervalMs int    `json:"flushIntervalMs"`
}

// ProfilingConfig enables the pyroscope profiler.
type ProfilingConfig struct {
	Enabled         bool   `json:"enabled"`
	ServerAddress   string `json:"serverAddress"`
	ApplicationName string `json:"applicationName"`
}

// SymbolConfig describes one instrument.
type SymbolConfig struct {
	Name       string `json:"name"`
	PriceScale int32  `json:"priceScale"`
}

// envOverrides are applied on top of the file config, pattern borrowed from
// twelve-factor service setups.
type envOverrides struct {
	FeedGroup         string `env:"FEED_GROUP"`
	FeedPort          int    `env:"FEED_PORT"`
	ArchiveConnString string `env:"ARCHIVE_CONN_STRING"`
	ProfilingServer   string `env:"PROFILING_SERVER"`
}

// ResolvedFeed is the feed config after defaulting and validation.
type ResolvedFeed struct {
	Group               string
	Port                int
	RecvBuf             int
	RingCapacity        int
	EventPool           int
	IngestCore          int
	ConsumerCore        int
	MaintenanceInterval time.Duration
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Feed      ResolvedFeed
	Sequencer sequencer.Config
	Recovery  RecoveryConfig
	Strategy  StrategyConfig
	Archive   archive.Config
	Profiling ProfilingConfig
	Registry  *schema.Registry
}

// Load reads the JSON config file, applies environment overrides, and
// resolves defaults. An empty path yields the built-in defaults.
func Load(path string) (Loaded, error) {
	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, err
		}
	}

	_ = godotenv.Load()
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return Loaded{}, fmt.Errorf("parse env overrides: %w", err)
	}
	applyOverrides(&cfg, ov)

	return resolve(cfg)
}

func applyOverrides(cfg *FileConfig, ov envOverrides) {
	if ov.FeedGroup != "" {
		cfg.Feed.Group = ov.FeedGroup
	}
	if ov.FeedPort != 0 {
		cfg.Feed.Port = ov.FeedPort
	}
	if ov.ArchiveConnString != "" {
		cfg.Archive.ConnString = ov.ArchiveConnString
	}
	if ov.ProfilingServer != "" {
		cfg.Profiling.ServerAddress = ov.ProfilingServer
	}
}

func resolve(cfg FileConfig) (Loaded, error) {
	feed, err := resolveFeed(cfg.Feed)
	if err != nil {
		return Loaded{}, err
	}

	registry, err := buildRegistry(cfg.Symbols)
	if err != nil {
		return Loaded{}, err
	}

	if cfg.Recovery.Port < 0 || cfg.Recovery.Port > 65535 {
		return Loaded{}, fmt.Errorf("recovery port out of range: %d", cfg.Recovery.Port)
	}

	seqCfg := sequencer.Config{
		MaxGap:          cfg.Sequencer.MaxGap,
		ReorderCapacity: cfg.Sequencer.ReorderCapacity,
		DuplicateWindow: cfg.Sequencer.DuplicateWindow,
		GapTimeout:      time.Duration(cfg.Sequencer.GapTimeoutMs) * time.Millisecond,
	}
	if cfg.Sequencer.MaxRetries < 0 || cfg.Sequencer.MaxRetries > 255 {
		return Loaded{}, fmt.Errorf("maxRetries out of range: %d", cfg.Sequencer.MaxRetries)
	}
	seqCfg.MaxRetries = uint8(cfg.Sequencer.MaxRetries)

	strategyCfg := cfg.Strategy
	if strategyCfg.LargeTradeQty == 0 {
		strategyCfg.LargeTradeQty = 10_000
	}

	profiling := cfg.Profiling
	if profiling.ApplicationName == "" {
		profiling.ApplicationName = "feedhandler"
	}

	return Loaded{
		Feed:      feed,
		Sequencer: seqCfg,
		Recovery:  cfg.Recovery,
		Strategy:  strategyCfg,
		Archive:   resolveArchive(cfg.Archive),
		Profiling: profiling,
		Registry:  registry,
	}, nil
}

func resolveFeed(cfg FeedConfig) (ResolvedFeed, error) {
	feed := ResolvedFeed{
		Group:        cfg.Group,
		Port:         cfg.Port,
		RecvBuf:      cfg.RecvBuf,
		RingCapacity: cfg.RingCapacity,
		EventPool:    cfg.EventPool,
		IngestCore:   cfg.IngestCore,
		ConsumerCore: cfg.ConsumerCore,
	}
	if feed.Group == "" {
		feed.Group = "233.54.12.1"
	}
	if feed.Port == 0 {
		feed.Port = 15000
	}
	if feed.Port < 1 || feed.Port > 65535 {
		return ResolvedFeed{}, fmt.Errorf("feed port out of range: %d", feed.Port)
	}
	if feed.RingCapacity == 0 {
		feed.RingCapacity = 65536
	}
	if feed.RingCapacity < 0 || feed.RingCapacity&(feed.RingCapacity-1) != 0 {
		return ResolvedFeed{}, fmt.Errorf("ringCapacity must be a power of two: %d", feed.RingCapacity)
	}
	if feed.EventPool == 0 {
		feed.EventPool = 8192
	}
	if feed.EventPool < 0 {
		return ResolvedFeed{}, fmt.Errorf("eventPool must be > 0: %d", feed.EventPool)
	}
	if feed.IngestCore < 0 || feed.ConsumerCore < 0 {
		return ResolvedFeed{}, fmt.Errorf("core ids must be >= 0")
	}
	if feed.IngestCore == 0 && feed.ConsumerCore == 0 {
		feed.ConsumerCore = 1
	}
	if feed.IngestCore == feed.ConsumerCore {
		return ResolvedFeed{}, fmt.Errorf("ingest and consumer cores must differ")
	}
	feed.MaintenanceInterval = time.Duration(cfg.MaintenanceIntervalMs) * time.Millisecond
	if feed.MaintenanceInterval <= 0 {
		feed.MaintenanceInterval = 100 * time.Millisecond
	}
	return feed, nil
}

func resolveArchive(cfg ArchiveConfig) archive.Config {
	return archive.Config{
		Enabled: cfg.Enabled,
		Conn: conn.Option{
			Host:       cfg.Host,
			Port:       cfg.Port,
			User:       cfg.User,
			Password:   cfg.Password,
			Database:   cfg.Database,
			SSLMode:    cfg.SSLMode,
			ConnString: cfg.ConnString,
		},
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: time.Duration(cfg.FlushIntervalMs) * time.Millisecond,
	}
}

func buildRegistry(symbols []SymbolConfig) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if len(symbols) == 0 {
		symbols = []SymbolConfig{{Name: "AAPL", PriceScale: 4}}
	}
	for _, sym := range symbols {
		if _, err := reg.AddSymbol(sym.Name, sym.PriceScale); err != nil {
			return nil, fmt.Errorf("register symbol %s: %w", sym.Name, err)
		}
	}
	return reg, nil
}
