package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestImportLimiter_AcquireRelease(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("initial ActiveCount = %d, want 0", got)
	}
	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}
	if got := limiter.MaxConcurrent(); got != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", got)
	}

	ctx := context.Background()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := limiter.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	limiter.Release()
	limiter.Release()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after releases = %d, want 0", got)
	}
}

func TestImportLimiter_RejectsWhenFull(t *testing.T) {
	limiter := NewImportLimiter(1, 50*time.Millisecond)

	ctx := context.Background()
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	start := time.Now()
	err := limiter.Acquire(ctx)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("error = %v, want ErrTooManyImports", err)
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("rejected after %v, want the full wait window", elapsed)
	}
}

func TestImportLimiter_ContextCancelled(t *testing.T) {
	limiter := NewImportLimiter(1, time.Minute)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestImportLimiter_TryAcquire(t *testing.T) {
	limiter := NewImportLimiter(1, time.Second)

	if !limiter.TryAcquire() {
		t.Fatal("first TryAcquire failed")
	}
	if limiter.TryAcquire() {
		t.Error("second TryAcquire succeeded with no free slots")
	}

	limiter.Release()

	if !limiter.TryAcquire() {
		t.Error("TryAcquire failed after Release")
	}
}

func TestImportLimiter_WaitForDrain(t *testing.T) {
	limiter := NewImportLimiter(2, time.Second)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := limiter.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		limiter.Release()
		limiter.Release()
	}()

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(drainCtx); err != nil {
		t.Errorf("WaitForDrain() error = %v", err)
	}
	wg.Wait()

	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after drain = %d, want 0", got)
	}
}

func TestImportLimiter_WaitForDrainTimeout(t *testing.T) {
	limiter := NewImportLimiter(1, time.Second)

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestImportLimiter_DefaultsApplied(t *testing.T) {
	limiter := NewImportLimiter(0, 0)

	if got := limiter.MaxConcurrent(); got != DefaultMaxConcurrentImports {
		t.Errorf("MaxConcurrent = %d, want default %d", got, DefaultMaxConcurrentImports)
	}
}
