package counter

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestNextIncrementsByOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")

	counter, err := New(path)
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}

	for want := uint64(1); want <= 5; want++ {
		got, err := counter.Next()
		if err != nil {
			t.Fatalf("failed to advance counter: %v", err)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
}

func TestValueSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")

	counter, err := New(path)
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}
	for range 7 {
		if _, err := counter.Next(); err != nil {
			t.Fatalf("failed to advance counter: %v", err)
		}
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("failed to reload counter: %v", err)
	}
	if got, want := reloaded.Value(), counter.Value(); got != want {
		t.Errorf("reloaded counter is %d, want %d", got, want)
	}
}

func TestMissingCheckpointStartsAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does_not_exist.json")

	counter, err := New(path)
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}
	if got := counter.Value(); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestConcurrentNext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.json")

	counter, err := New(path)
	if err != nil {
		t.Fatalf("failed to create counter: %v", err)
	}

	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			if _, err := counter.Next(); err != nil {
				t.Errorf("failed to advance counter: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := counter.Value(); got != goroutines {
		t.Errorf("got %d, want %d", got, goroutines)
	}

	reloaded, err := New(path)
	if err != nil {
		t.Fatalf("failed to reload counter: %v", err)
	}
	if got := reloaded.Value(); got != goroutines {
		t.Errorf("reloaded counter is %d, want %d", got, goroutines)
	}
}

func TestReceiptIsDeterministic(t *testing.T) {
	for _, n := range []uint64{0, 1, 42, 1 << 40} {
		if Receipt(n) != Receipt(n) {
			t.Errorf("receipt for %d is not deterministic", n)
		}
	}

	// Fixed point: sha3-256 of the string "1".
	if got, want := Receipt(1), "67b176705b46206614219f47a05aee7ae6a3edbe850bbbe214c536b989aea4d2"; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestReceiptsDoNotCollide(t *testing.T) {
	seen := make(map[string]uint64)
	for n := uint64(0); n < 10_000; n++ {
		receipt := Receipt(n)
		if prev, ok := seen[receipt]; ok {
			t.Fatalf("receipt collision between %d and %d", prev, n)
		}
		seen[receipt] = n
	}
}
