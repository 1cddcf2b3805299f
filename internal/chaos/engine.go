package chaos

import (
	"fmt"
	"math/rand"
	"time"
)

// Anomaly is one fault decision for an outgoing packet.
type Anomaly uint8

const (
	AnomalyNone Anomaly = iota
	// AnomalyGap skips sequence numbers, simulating loss on the wire.
	AnomalyGap
	// AnomalyDuplicate resends the previous packet.
	AnomalyDuplicate
	// AnomalyReorder holds the packet and releases it after a later one.
	AnomalyReorder
)

// Config controls fault injection rates. Rates are probabilities per
// packet and are evaluated in gap, duplicate, reorder order, like the
// exchange simulators this mimics.
type Config struct {
	Seed          int64
	GapRate       float64
	DuplicateRate float64
	ReorderRate   float64
	MaxGapSize    int
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	for name, rate := range map[string]float64{
		"gapRate":       c.GapRate,
		"duplicateRate": c.DuplicateRate,
		"reorderRate":   c.ReorderRate,
	} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.GapRate+c.DuplicateRate+c.ReorderRate > 1 {
		return fmt.Errorf("combined fault rates exceed 1")
	}
	if c.MaxGapSize < 0 {
		return fmt.Errorf("maxGapSize must be >= 0")
	}
	return nil
}

// Engine rolls fault decisions from a seeded RNG so a run is reproducible.
type Engine struct {
	cfg Config
	rng *rand.Rand
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MaxGapSize <= 0 {
		cfg.MaxGapSize = 10
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Seed returns the seed in use, for logging reproducible runs.
func (e *Engine) Seed() int64 {
	return e.cfg.Seed
}

// Roll decides the anomaly for the next packet.
func (e *Engine) Roll() Anomaly {
	v := e.rng.Float64()
	switch {
	case v < e.cfg.GapRate:
		return AnomalyGap
	case v < e.cfg.GapRate+e.cfg.DuplicateRate:
		return AnomalyDuplicate
	case v < e.cfg.GapRate+e.cfg.DuplicateRate+e.cfg.ReorderRate:
		return AnomalyReorder
	default:
		return AnomalyNone
	}
}

// GapSize picks how many sequences a gap skips, in [1, MaxGapSize].
func (e *Engine) GapSize() int {
	return 1 + e.rng.Intn(e.cfg.MaxGapSize)
}
