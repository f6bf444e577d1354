package syncx

import (
	"sync"
	"testing"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard[int64](1)

	if got := g.Get(); got != 1 {
		t.Errorf("Get() = %d, want 1", got)
	}

	g.Set(7)
	if got := g.Get(); got != 7 {
		t.Errorf("Get() after Set = %d, want 7", got)
	}
}

func TestGuardSwap(t *testing.T) {
	g := NewGuard[int64](3)

	if old := g.Swap(5); old != 3 {
		t.Errorf("Swap returned %d, want 3", old)
	}
	if got := g.Get(); got != 5 {
		t.Errorf("Get() after Swap = %d, want 5", got)
	}
}

func TestGuardConcurrentSwaps(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup
	olds := make(chan int, 100)

	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			olds <- g.Swap(i)
		}()
		go func() {
			defer wg.Done()
			_ = g.Get()
		}()
	}
	wg.Wait()
	close(olds)

	// every value is handed out exactly once: 0..100 across the olds and the final value
	sum := g.Get()
	for v := range olds {
		sum += v
	}
	if sum != 5050 {
		t.Errorf("sum of swapped values = %d, want 5050", sum)
	}
}
