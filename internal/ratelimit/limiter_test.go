package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrencyBound(t *testing.T) {
	const bound = 3
	l := New(bound, 0)
	ctx := context.Background()

	var cur, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			n := atomic.AddInt32(&cur, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&cur, -1)
			l.Release()
		}()
	}
	wg.Wait()

	if p := atomic.LoadInt32(&peak); p > bound {
		t.Fatalf("peak concurrency %d exceeds bound %d", p, bound)
	}
}

func TestSpacingBetweenAcquires(t *testing.T) {
	const spacing = 50 * time.Millisecond
	l := New(2, spacing)
	ctx := context.Background()

	// First acquire/release establishes the release timestamp.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	l.Release()

	start := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if gap := time.Since(start); gap < spacing-5*time.Millisecond {
		t.Fatalf("second acquire completed after %v, want >= %v since last release", gap, spacing)
	}
	l.Release()
}

func TestAcquireRespectsContext(t *testing.T) {
	l := New(1, 0)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(cctx); err == nil {
		t.Fatal("expected context error while slot is held")
	}

	l.Release()

	// The slot freed above must be usable again.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	l.Release()
}

func TestCanceledSpacingWaitReturnsSlot(t *testing.T) {
	const spacing = 200 * time.Millisecond
	l := New(1, spacing)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	l.Release()

	// Cancel during the spacing wait; the slot must come back.
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(cctx); err == nil {
		t.Fatal("expected cancellation during spacing wait")
	}

	// Slot and gate are both available again.
	wctx, wcancel := context.WithTimeout(ctx, spacing*2)
	defer wcancel()
	if err := l.Acquire(wctx); err != nil {
		t.Fatalf("Acquire after canceled wait: %v", err)
	}
	l.Release()
}
