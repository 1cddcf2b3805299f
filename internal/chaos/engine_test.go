package chaos

import "testing"

func TestValidateRejectsBadRates(t *testing.T) {
	cases := []Config{
		{GapRate: -0.1},
		{DuplicateRate: 1.5},
		{GapRate: 0.6, DuplicateRate: 0.5},
		{MaxGapSize: -1},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: invalid config accepted", i)
		}
	}
}

func TestSeededRollsAreReproducible(t *testing.T) {
	cfg := Config{Seed: 42, GapRate: 0.1, DuplicateRate: 0.1, ReorderRate: 0.1}
	a, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if a.Roll() != b.Roll() {
			t.Fatalf("divergence at roll %d", i)
		}
	}
}

func TestZeroRatesNeverFault(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if a := e.Roll(); a != AnomalyNone {
			t.Fatalf("unexpected anomaly %d", a)
		}
	}
}

func TestGapSizeInRange(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, MaxGapSize: 5})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if n := e.GapSize(); n < 1 || n > 5 {
			t.Fatalf("gap size out of range: %d", n)
		}
	}
}
