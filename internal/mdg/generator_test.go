package mdg

import (
	"testing"

	"main/internal/chaos"
	"main/internal/schema"
	"main/internal/wire"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	if _, err := reg.AddSymbol("AAPL", 4); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.AddSymbol("MSFT", 4); err != nil {
		t.Fatal(err)
	}
	return reg
}

func cleanEngine(t *testing.T) *chaos.Engine {
	t.Helper()
	e, err := chaos.NewEngine(chaos.Config{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCleanFeedIsContiguous(t *testing.T) {
	g, err := NewGenerator(testRegistry(t), Config{Seed: 1, QuoteEvery: 4, HeartbeatEvery: 10}, cleanEngine(t))
	if err != nil {
		t.Fatal(err)
	}

	want := uint64(1)
	for tick := 0; tick < 200; tick++ {
		for _, packet := range g.Next(int64(tick)) {
			h, err := wire.ParseHeader(packet)
			if err != nil {
				t.Fatalf("tick %d: %v", tick, err)
			}
			if h.Sequence != want {
				t.Fatalf("tick %d: seq %d want %d", tick, h.Sequence, want)
			}
			want++
		}
	}

	st := g.GetStats()
	if st.GapsInjected != 0 || st.DuplicatesSent != 0 || st.Reordered != 0 {
		t.Fatalf("clean feed produced faults: %+v", st)
	}
	if st.Heartbeats == 0 {
		t.Fatal("no heartbeats interleaved")
	}
}

func TestFaultyFeedInjectsAnomalies(t *testing.T) {
	eng, err := chaos.NewEngine(chaos.Config{
		Seed: 99, GapRate: 0.05, DuplicateRate: 0.05, ReorderRate: 0.05, MaxGapSize: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGenerator(testRegistry(t), Config{Seed: 99}, eng)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[uint64]int)
	outOfOrder := 0
	var prev uint64
	for tick := 0; tick < 5000; tick++ {
		for _, packet := range g.Next(int64(tick)) {
			seq, ok := wire.Sequence(packet)
			if !ok {
				t.Fatal("short packet generated")
			}
			seen[seq]++
			if seq < prev {
				outOfOrder++
			}
			if seq > prev {
				prev = seq
			}
		}
	}
	for _, packet := range g.Flush() {
		seq, _ := wire.Sequence(packet)
		seen[seq]++
	}

	st := g.GetStats()
	if st.GapsInjected == 0 || st.DuplicatesSent == 0 || st.Reordered == 0 {
		t.Fatalf("expected all anomaly kinds at these rates: %+v", st)
	}

	dups := 0
	for _, n := range seen {
		if n > 1 {
			dups += n - 1
		}
	}
	if dups == 0 {
		t.Fatal("no duplicate sequences on the wire")
	}
	if outOfOrder == 0 {
		t.Fatal("no out-of-order delivery observed")
	}
}

func TestGeneratorRequiresSymbols(t *testing.T) {
	if _, err := NewGenerator(schema.NewRegistry(), Config{}, cleanEngine(t)); err == nil {
		t.Fatal("empty registry accepted")
	}
	if _, err := NewGenerator(testRegistry(t), Config{}, nil); err == nil {
		t.Fatal("nil chaos engine accepted")
	}
}
