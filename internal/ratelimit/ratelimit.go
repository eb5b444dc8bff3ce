package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config controls one limiter check. Identifiers are namespaced per endpoint
// by the caller ("submit:ip:1.2.3.4") so limits on different operations do
// not interfere.
type Config struct {
	MaxRequests   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Result reports the admission decision for one request
type Result struct {
	Allowed    bool
	Remaining  int
	ResetIn    time.Duration
	RetryAfter time.Duration
}

type entry struct {
	count        int
	resetTime    time.Time
	blockedUntil time.Time
}

// Limiter is a single-process in-memory fixed-window counter with a penalty
// block once the window is exceeded. It does not coordinate across multiple
// server instances; multi-instance deployments need a shared store instead.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewLimiter creates an empty Limiter
func NewLimiter() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check counts one request against the identifier's window. Exceeding
// MaxRequests blocks the identifier for BlockDuration regardless of window
// reset.
func (l *Limiter) Check(identifier string, cfg Config) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[identifier]

	if ok && now.Before(e.blockedUntil) {
		return Result{
			Allowed:    false,
			RetryAfter: e.blockedUntil.Sub(now),
			ResetIn:    e.blockedUntil.Sub(now),
		}
	}

	if !ok || now.After(e.resetTime) {
		e = &entry{count: 0, resetTime: now.Add(cfg.Window)}
		l.entries[identifier] = e
	}

	e.count++
	if e.count > cfg.MaxRequests {
		e.blockedUntil = now.Add(cfg.BlockDuration)
		return Result{
			Allowed:    false,
			RetryAfter: cfg.BlockDuration,
			ResetIn:    cfg.BlockDuration,
		}
	}

	return Result{
		Allowed:   true,
		Remaining: cfg.MaxRequests - e.count,
		ResetIn:   e.resetTime.Sub(now),
	}
}

// Block manually blocks an identifier until now+d, independent of the
// organic counting
func (l *Limiter) Block(identifier string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[identifier]
	if !ok {
		e = &entry{}
		l.entries[identifier] = e
	}
	e.blockedUntil = l.now().Add(d)
}

// Unblock lifts a manual or organic block
func (l *Limiter) Unblock(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[identifier]; ok {
		e.blockedUntil = time.Time{}
	}
}

// Clear drops the identifier's state entirely (operator endpoint)
func (l *Limiter) Clear(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[identifier]; ok {
		delete(l.entries, identifier)
		return true
	}
	return false
}

// Sweep removes entries whose window lapsed and whose block expired
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for id, e := range l.entries {
		if now.After(e.resetTime) && now.After(e.blockedUntil) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled
func (l *Limiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Sweep()
			}
		}
	}()
}

// Len reports the number of tracked identifiers
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
