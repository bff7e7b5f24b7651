package core

// write_limiter.go bounds how many writes run against the store at once.
//
// Slots are a buffered channel. A write that cannot get a slot within the
// configured wait fails with ErrTooManyWrites instead of queueing forever.
// WaitForDrain lets shutdown finish in-flight writes before closing the store.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyWrites is returned when all write slots stay occupied for the
// whole wait period. Clients should retry after a short delay.
var ErrTooManyWrites = errors.New("too many concurrent writes, please try again later")

const (
	// DefaultMaxConcurrentWrites is the default number of write slots.
	DefaultMaxConcurrentWrites = 16

	// DefaultWriteWait is how long a write waits for a slot.
	DefaultWriteWait = 5 * time.Second
)

// WriteLimiter is a counting semaphore for store writes.
type WriteLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewWriteLimiter creates a limiter with maxConcurrent slots.
// Zero or negative arguments fall back to the defaults.
func NewWriteLimiter(maxConcurrent int, maxWait time.Duration) *WriteLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentWrites
	}
	if maxWait <= 0 {
		maxWait = DefaultWriteWait
	}
	return &WriteLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the limiter's max wait.
// The caller must call Release exactly once after a nil return.
func (l *WriteLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyWrites
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot without waiting.
func (l *WriteLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot.
func (l *WriteLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Do runs fn while holding a slot.
func (l *WriteLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// ActiveCount returns the number of writes holding a slot.
func (l *WriteLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// Available returns the number of free slots.
func (l *WriteLimiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no write holds a slot or ctx is done.
func (l *WriteLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WriteLimiterStatus is a snapshot of the limiter for health output.
type WriteLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *WriteLimiter) Status() WriteLimiterStatus {
	return WriteLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
