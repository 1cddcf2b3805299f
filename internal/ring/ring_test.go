package ring

import (
	"errors"
	"testing"

	"main/pkg/exception"
)

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	for _, size := range []int{0, -1, 3, 6, 100} {
		if _, err := New[int](size); !errors.Is(err, exception.ErrRingCapacity) {
			t.Fatalf("size %d: expected capacity error, got %v", size, err)
		}
	}
}

func TestPushPopFIFO(t *testing.T) {
	r, err := New[int](8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d failed", i)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok := r.TryPop()
		if !ok || v != i {
			t.Fatalf("pop %d: got %d %v", i, v, ok)
		}
	}
	if _, ok := r.TryPop(); ok {
		t.Fatal("pop succeeded on empty ring")
	}
}

func TestCapacityBoundary(t *testing.T) {
	const n = 4
	r, _ := New[uint64](n)
	for i := uint64(0); i < n; i++ {
		if !r.TryPush(i) {
			t.Fatalf("push %d failed before capacity", i)
		}
	}
	if r.TryPush(99) {
		t.Fatal("push succeeded on full ring")
	}
	if v, ok := r.TryPop(); !ok || v != 0 {
		t.Fatalf("pop after full: got %d %v", v, ok)
	}
	// Exactly one slot opened up.
	if !r.TryPush(100) {
		t.Fatal("push failed after single pop")
	}
	if r.TryPush(101) {
		t.Fatal("second push succeeded with no free slot")
	}
}

func TestWraparound(t *testing.T) {
	r, _ := New[int](4)
	next := 0
	for round := 0; round < 100; round++ {
		for i := 0; i < 3; i++ {
			if !r.TryPush(next + i) {
				t.Fatalf("round %d push failed", round)
			}
		}
		for i := 0; i < 3; i++ {
			v, ok := r.TryPop()
			if !ok || v != next+i {
				t.Fatalf("round %d: got %d %v want %d", round, v, ok, next+i)
			}
		}
		next += 3
	}
}

// The popped sequence must be a prefix of the pushed sequence for any
// interleaving of one producer and one consumer.
func TestSPSCPrefixLaw(t *testing.T) {
	const total = 1 << 18
	r, _ := New[uint64](1 << 10)

	done := make(chan []uint64)
	go func() {
		got := make([]uint64, 0, total)
		for len(got) < total {
			if v, ok := r.TryPop(); ok {
				got = append(got, v)
			}
		}
		done <- got
	}()

	for i := uint64(0); i < total; {
		if r.TryPush(i) {
			i++
		}
	}

	got := <-done
	for i, v := range got {
		if v != uint64(i) {
			t.Fatalf("out of order at %d: got %d", i, v)
		}
	}
}

func TestLenIsEmptyAndCapacity(t *testing.T) {
	r, _ := New[int](8)
	for i := 0; i < 6; i++ {
		r.TryPush(i)
	}
	if n := r.Len(); n != 6 {
		t.Fatalf("len: got %d want 6", n)
	}
	if r.IsEmpty() {
		t.Fatal("ring reported empty while holding values")
	}
	if c := r.Capacity(); c != 8 {
		t.Fatalf("capacity: got %d want 8", c)
	}
}
