package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Stats is a snapshot of limiter usage.
type Stats struct {
	TotalCalls    int
	LastCall      time.Time
	TimeRemaining time.Duration
	Cooldown      time.Duration
}

// Limiter enforces a minimum cooldown between expensive API calls.
// A single Limiter is shared by every caller that hits the generation
// API, so the cooldown is a global throttle, not a per-caller one.
type Limiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastCall time.Time
	total    int
	now      func() time.Time
}

func New(cooldown time.Duration) *Limiter {
	return NewWithClock(cooldown, time.Now)
}

// NewWithClock allows tests to substitute the clock.
func NewWithClock(cooldown time.Duration, now func() time.Time) *Limiter {
	return &Limiter{cooldown: cooldown, now: now}
}

// CanProceed reports whether the cooldown has elapsed. It has no side
// effects; callers that intend to make the call should use TryAcquire
// so the check and the record happen under one lock.
func (l *Limiter) CanProceed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remainingLocked() == 0
}

// TimeRemaining returns how long until the next call is allowed,
// zero if a call is allowed now.
func (l *Limiter) TimeRemaining() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remainingLocked()
}

func (l *Limiter) remainingLocked() time.Duration {
	if l.lastCall.IsZero() {
		return 0
	}
	remaining := l.cooldown - l.now().Sub(l.lastCall)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordCall marks that an API call was made.
func (l *Limiter) RecordCall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked()
}

func (l *Limiter) recordLocked() {
	l.lastCall = l.now()
	l.total++
}

// TryAcquire atomically checks the cooldown and, if allowed, records
// the call. If denied it returns the remaining wait and records
// nothing.
func (l *Limiter) TryAcquire() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if remaining := l.remainingLocked(); remaining > 0 {
		return false, remaining
	}
	l.recordLocked()
	return true, 0
}

// AcquireWait blocks until the cooldown elapses, then records the
// call. It returns early with the context error if ctx is cancelled.
func (l *Limiter) AcquireWait(ctx context.Context) error {
	for {
		l.mu.Lock()
		remaining := l.remainingLocked()
		if remaining == 0 {
			l.recordLocked()
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset clears the last-call timestamp so the next call is allowed
// immediately. The total call counter is preserved.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastCall = time.Time{}
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TotalCalls:    l.total,
		LastCall:      l.lastCall,
		TimeRemaining: l.remainingLocked(),
		Cooldown:      l.cooldown,
	}
}
