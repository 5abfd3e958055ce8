package importer

// limiter.go bounds the number of processing passes running at once.
//
// A pass holds the retained CSV in memory and hammers the contact
// store row by row, so an unbounded number of simultaneous passes can
// exhaust both. The limiter uses a semaphore: when every slot is
// occupied, a new pass waits up to maxWait before failing with
// ErrTooManyImports.
//
// WaitForDrain supports graceful shutdown by blocking until the active
// passes finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when all processing slots are occupied
// and the wait timeout expires. Clients should retry after a delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// DefaultMaxConcurrentImports is the default limit on parallel passes.
const DefaultMaxConcurrentImports = 4

// DefaultMaxSlotWait is how long to wait for a slot before rejecting.
const DefaultMaxSlotWait = 30 * time.Second

// ImportLimiter controls concurrent processing passes with a semaphore.
type ImportLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewImportLimiter creates a limiter allowing at most maxConcurrent
// simultaneous passes. Requests that cannot acquire a slot within
// maxWait receive ErrTooManyImports.
func NewImportLimiter(maxConcurrent int, maxWait time.Duration) *ImportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxSlotWait
	}

	return &ImportLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire obtains a processing slot, waiting up to the configured
// maximum. The caller must Release exactly once after a nil return.
func (l *ImportLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyImports
	}
}

// TryAcquire obtains a slot without blocking.
func (l *ImportLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release returns a previously acquired slot.
func (l *ImportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of passes currently running.
func (l *ImportLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *ImportLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// MaxConcurrent returns the configured slot count.
func (l *ImportLimiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// WaitForDrain blocks until every active pass completes or the context
// is cancelled. Used during graceful shutdown.
func (l *ImportLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
