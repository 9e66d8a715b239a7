package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter implements ports.RateLimiter with a true sliding window:
// per-user request timestamps are kept and pruned on each check.
type MemoryLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	history map[int64][]time.Time

	// now is swappable for tests
	now func() time.Time
}

// NewMemoryLimiter creates a limiter allowing limit requests per window
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		history: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether the user is within the request budget and, if
// so, records the request.
func (l *MemoryLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.history[userID][:0]
	for _, t := range l.history[userID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.history[userID] = recent
		return false, nil
	}

	l.history[userID] = append(recent, now)
	return true, nil
}

// Prune drops users whose entire window has expired. Called by the
// maintenance cleanup task so idle users do not accumulate.
func (l *MemoryLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for userID, times := range l.history {
		live := false
		for _, t := range times {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.history, userID)
		}
	}
}
