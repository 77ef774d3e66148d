package core

// limiter.go implements concurrency control for bulk operations.
//
// The limiter uses a semaphore pattern to restrict parallel operations
// to a configurable maximum. When all slots are occupied, new launches
// wait up to maxWait before failing with ErrTooManyOperations.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyOperations is returned when all operation slots are
// occupied and the wait timeout expires.
var ErrTooManyOperations = errors.New("too many concurrent bulk operations, please try again later")

// DefaultMaxConcurrentOperations bounds parallel operations by default.
const DefaultMaxConcurrentOperations = 3

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// OperationLimiter controls how many bulk operations run at once.
type OperationLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewOperationLimiter creates a limiter allowing maxConcurrent
// simultaneous operations.
func NewOperationLimiter(maxConcurrent int, maxWait time.Duration) *OperationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentOperations
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &OperationLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire an operation slot.
// The caller must call Release exactly once on success.
func (l *OperationLimiter) Acquire(ctx context.Context) error {
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
		return ErrTooManyOperations
	}
}

// Release frees a previously acquired slot.
func (l *OperationLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of operations currently running.
func (l *OperationLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until all active operations complete or the
// context is cancelled. Used for graceful shutdown.
func (l *OperationLimiter) WaitForDrain(ctx context.Context) error {
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
