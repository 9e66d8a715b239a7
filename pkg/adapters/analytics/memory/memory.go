package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aescanero/quizcast/pkg/domain"
)

// event is one recorded activity row
type event struct {
	kind   string
	userID int64
	n      int
	at     time.Time
}

// Store implements ports.AnalyticsStore in memory. Events older than
// the retention window are dropped lazily so the slice stays bounded;
// lifetime totals are kept separately.
type Store struct {
	mu        sync.Mutex
	totals    map[string]int64
	users     map[int64]struct{}
	events    []event
	retention time.Duration

	now func() time.Time
}

// NewStore creates a new in-memory analytics store. Retention bounds
// how long individual events are kept for the last-24h counters.
func NewStore(retention time.Duration) *Store {
	return &Store{
		totals:    make(map[string]int64),
		users:     make(map[int64]struct{}),
		retention: retention,
		now:       time.Now,
	}
}

// Record adds n occurrences of kind for a user
func (s *Store) Record(ctx context.Context, kind string, userID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totals[kind] += int64(n)
	if userID != 0 {
		s.users[userID] = struct{}{}
	}
	s.events = append(s.events, event{kind: kind, userID: userID, n: n, at: s.now()})
	s.prune()

	return nil
}

// Summary aggregates the recorded events into counters
func (s *Store) Summary(ctx context.Context) (*domain.AnalyticsSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()

	summary := &domain.AnalyticsSummary{
		Totals:        make(map[string]int64, len(s.totals)),
		Last24h:       make(map[string]int64),
		DistinctUsers: int64(len(s.users)),
		GeneratedAt:   s.now(),
	}

	for kind, total := range s.totals {
		summary.Totals[kind] = total
	}

	dayAgo := s.now().Add(-24 * time.Hour)
	for _, e := range s.events {
		if e.at.After(dayAgo) {
			summary.Last24h[e.kind] += int64(e.n)
		}
	}

	return summary, nil
}

// prune drops events beyond the retention window. Caller holds the lock.
func (s *Store) prune() {
	cutoff := s.now().Add(-s.retention)
	i := 0
	for ; i < len(s.events); i++ {
		if s.events[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		s.events = append([]event(nil), s.events[i:]...)
	}
}
