package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/logs"

	"main/internal/chaos"
	"main/internal/clock"
	"main/internal/mdg"
	"main/internal/recovery"
	"main/internal/schema"
	"main/internal/transport"
	"main/internal/wire"
)

// fileConfig is the optional JSON config. Prices are human-readable
// decimals and converted to the wire's fixed-point scale.
type fileConfig struct {
	BasePrice decimal.Decimal `json:"basePrice"`
	Spread    decimal.Decimal `json:"spread"`
	Symbols   []string        `json:"symbols"`
}

func main() {
	if err := run(); err != nil {
		logs.Errorf("feedgen: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	group := flag.String("group", "233.54.12.1", "multicast group")
	port := flag.Int("port", 15000, "feed port")
	rate := flag.Int("rate", 10000, "packets per second")
	total := flag.Uint64("total", 0, "total packets (0 = run until interrupted)")
	gapRate := flag.Float64("gap-rate", 0.001, "gap injection probability")
	dupRate := flag.Float64("dup-rate", 0.002, "duplicate injection probability")
	reorderRate := flag.Float64("reorder-rate", 0.005, "reorder injection probability")
	seed := flag.Int64("seed", 0, "RNG seed (0 = now)")
	recoveryPort := flag.Int("recovery-port", 0, "retransmission request port (0 = disabled)")
	historySize := flag.Int("history", 65536, "replay history window")
	quoteEvery := flag.Int("quote-every", 5, "one quote per N packets (0 = trades only)")
	heartbeatEvery := flag.Int("heartbeat-every", 100, "one heartbeat per N packets (0 = none)")
	configPath := flag.String("config", "", "JSON config path for prices and symbols")
	flag.Parse()

	if *rate <= 0 {
		return fmt.Errorf("rate must be > 0")
	}

	genCfg := mdg.Config{
		Seed:           *seed,
		QuoteEvery:     *quoteEvery,
		HeartbeatEvery: *heartbeatEvery,
	}
	symbols := []string{"AAPL"}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return err
		}
		var cfg fileConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return err
		}
		if genCfg.BasePrice, err = toFixed(cfg.BasePrice); err != nil {
			return fmt.Errorf("basePrice: %w", err)
		}
		if genCfg.Spread, err = toFixed(cfg.Spread); err != nil {
			return fmt.Errorf("spread: %w", err)
		}
		if len(cfg.Symbols) > 0 {
			symbols = cfg.Symbols
		}
	}

	reg := schema.NewRegistry()
	for _, name := range symbols {
		if _, err := reg.AddSymbol(name, 4); err != nil {
			return err
		}
	}

	faults, err := chaos.NewEngine(chaos.Config{
		Seed:          *seed,
		GapRate:       *gapRate,
		DuplicateRate: *dupRate,
		ReorderRate:   *reorderRate,
	})
	if err != nil {
		return err
	}

	gen, err := mdg.NewGenerator(reg, genCfg, faults)
	if err != nil {
		return err
	}

	sender, err := transport.NewSender(*group, *port, 1)
	if err != nil {
		return err
	}
	defer sender.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history := recovery.NewHistory(*historySize)
	if *recoveryPort > 0 {
		in, err := transport.NewReceiver("0.0.0.0", *recoveryPort, 0)
		if err != nil {
			return err
		}
		defer in.Close()
		go recovery.NewResponder(in, sender, history).Run(ctx)
		logs.Infof("retransmission responder on port %d", *recoveryPort)
	}

	logs.Infof("generating to %s:%d at %d pps, seed=%d gap=%.4f dup=%.4f reorder=%.4f",
		*group, *port, *rate, faults.Seed(), *gapRate, *dupRate, *reorderRate)

	interval := time.Second / time.Duration(*rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var sent uint64
	for *total == 0 || sent < *total {
		select {
		case <-ctx.Done():
			flushHeld(gen, sender, history)
			logFinal(gen, sent)
			return nil
		case <-ticker.C:
		}

		for _, packet := range gen.Next(clock.Now()) {
			if err := send(sender, history, packet); err != nil {
				return err
			}
			sent++
		}

		if sent > 0 && sent%10000 == 0 {
			st := gen.GetStats()
			logs.Infof("sent=%d gaps=%d dups=%d reordered=%d heartbeats=%d",
				sent, st.GapsInjected, st.DuplicatesSent, st.Reordered, st.Heartbeats)
		}
	}

	flushHeld(gen, sender, history)
	logFinal(gen, sent)
	return nil
}

func send(sender *transport.Sender, history *recovery.History, packet []byte) error {
	if err := sender.Send(packet); err != nil {
		return err
	}
	if seq, ok := wire.Sequence(packet); ok {
		history.Record(seq, packet)
	}
	return nil
}

func flushHeld(gen *mdg.Generator, sender *transport.Sender, history *recovery.History) {
	for _, packet := range gen.Flush() {
		if err := send(sender, history, packet); err != nil {
			logs.Errorf("flush held packet, err: %+v", err)
		}
	}
}

func logFinal(gen *mdg.Generator, sent uint64) {
	st := gen.GetStats()
	logs.Infof("complete: sent=%d gaps=%d dups=%d reordered=%d heartbeats=%d",
		sent, st.GapsInjected, st.DuplicatesSent, st.Reordered, st.Heartbeats)
}

// toFixed converts a decimal price into the wire's fixed-point scale.
func toFixed(d decimal.Decimal) (int64, error) {
	s := strings.TrimSpace(d.String())
	if s == "" || s == "0" {
		return 0, nil
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 4 {
		frac = frac[:4]
	}
	for len(frac) < 4 {
		frac += "0"
	}
	var v int64
	for _, c := range whole + frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid decimal %q", d.String())
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}
