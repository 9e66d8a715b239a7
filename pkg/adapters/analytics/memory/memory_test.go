package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/quizcast/pkg/domain"
)

func TestStore_RecordAndSummary(t *testing.T) {
	s := NewStore(24 * time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.KindPollSent, 1, 3))
	require.NoError(t, s.Record(ctx, domain.KindPollSent, 2, 1))
	require.NoError(t, s.Record(ctx, domain.KindQuizCompleted, 1, 1))

	summary, err := s.Summary(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.Totals[domain.KindPollSent])
	assert.Equal(t, int64(1), summary.Totals[domain.KindQuizCompleted])
	assert.Equal(t, int64(4), summary.Last24h[domain.KindPollSent])
	assert.Equal(t, int64(2), summary.DistinctUsers)
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestStore_SystemEventsNotCountedAsUsers(t *testing.T) {
	s := NewStore(24 * time.Hour)
	ctx := context.Background()

	// userID 0 marks system activity, not a distinct user
	require.NoError(t, s.Record(ctx, domain.KindUpdateReceived, 0, 1))

	summary, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.DistinctUsers)
	assert.Equal(t, int64(1), summary.Totals[domain.KindUpdateReceived])
}

func TestStore_Last24hExcludesOldEvents(t *testing.T) {
	current := time.Now()
	s := NewStore(48 * time.Hour)
	s.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.KindPollSent, 1, 2))

	// Jump past the 24h horizon: totals survive, the rolling counter drops
	current = current.Add(25 * time.Hour)
	require.NoError(t, s.Record(ctx, domain.KindPollSent, 1, 1))

	summary, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Totals[domain.KindPollSent])
	assert.Equal(t, int64(1), summary.Last24h[domain.KindPollSent])
}

func TestStore_PruneBoundsEvents(t *testing.T) {
	current := time.Now()
	s := NewStore(time.Hour)
	s.now = func() time.Time { return current }
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, domain.KindPollSent, 1, 1))
	current = current.Add(2 * time.Hour)
	require.NoError(t, s.Record(ctx, domain.KindPollSent, 1, 1))

	assert.Len(t, s.events, 1)
}
