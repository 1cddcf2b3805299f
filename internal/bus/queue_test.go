package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"main/internal/model"
)

func TestTryPublishShedsWhenFull(t *testing.T) {
	q := NewQueue(2)
	if err := q.TryPublish(model.MarketEvent{Sequence: 1}); err != nil {
		t.Fatalf("publish 1: %v", err)
	}
	if err := q.TryPublish(model.MarketEvent{Sequence: 2}); err != nil {
		t.Fatalf("publish 2: %v", err)
	}
	if err := q.TryPublish(model.MarketEvent{Sequence: 3}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected full, got %v", err)
	}
}

func TestClosedQueueRejectsPublishes(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close() // idempotent
	if err := q.TryPublish(model.MarketEvent{}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
}

func TestRunDrainsUntilClosed(t *testing.T) {
	q := NewQueue(8)
	for seq := uint64(1); seq <= 3; seq++ {
		if err := q.TryPublish(model.MarketEvent{Sequence: seq}); err != nil {
			t.Fatalf("publish %d: %v", seq, err)
		}
	}
	q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []uint64
	q.Run(ctx, func(ev model.MarketEvent) {
		got = append(got, ev.Sequence)
	})

	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("drained %v", got)
	}
}
