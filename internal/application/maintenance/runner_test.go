package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	analyticsmemory "github.com/aescanero/quizcast/pkg/adapters/analytics/memory"
	"github.com/aescanero/quizcast/pkg/adapters/backup"
	eventsmemory "github.com/aescanero/quizcast/pkg/adapters/events/memory"
	"github.com/aescanero/quizcast/pkg/adapters/ratelimit"
	storagememory "github.com/aescanero/quizcast/pkg/adapters/storage/memory"
	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
)

// gaugeMetrics records the gauge values the runner sets
type gaugeMetrics struct {
	activeSessions int
	memoryMB       float64
	goroutines     int
	healthy        bool
	healthySet     bool
}

func (m *gaugeMetrics) IncUpdatesReceived(kind string)                        {}
func (m *gaugeMetrics) IncQuizzesSubmitted(status string)                     {}
func (m *gaugeMetrics) IncPollsSent(n int)                                    {}
func (m *gaugeMetrics) IncPollsFailed(n int)                                  {}
func (m *gaugeMetrics) IncRetries(method string)                              {}
func (m *gaugeMetrics) IncRateLimited()                                       {}
func (m *gaugeMetrics) ObserveQuizSendDuration(d time.Duration)               {}
func (m *gaugeMetrics) ObserveTelegramLatency(method string, d time.Duration) {}
func (m *gaugeMetrics) SetActiveSessions(n int)                               { m.activeSessions = n }
func (m *gaugeMetrics) SetMemoryUsageMB(mb float64)                           { m.memoryMB = mb }
func (m *gaugeMetrics) SetGoroutines(n int)                                   { m.goroutines = n }
func (m *gaugeMetrics) SetHealthy(healthy bool)                               { m.healthy = healthy; m.healthySet = true }

func newTestRunner(t *testing.T, sessions ports.SessionStore, metrics ports.MetricsCollector) *Runner {
	t.Helper()

	analytics := analyticsmemory.NewStore(24 * time.Hour)
	return NewRunner(&Config{
		Sessions:        sessions,
		Limiter:         ratelimit.NewMemoryLimiter(10, time.Minute),
		Backup:          backup.NewWriter(t.TempDir(), 5, sessions, analytics, zap.NewNop()),
		EventBus:        eventsmemory.NewInMemoryEventBus(),
		Metrics:         metrics,
		Logger:          zap.NewNop(),
		Retention:       time.Hour,
		CleanupInterval: time.Minute,
		BackupInterval:  time.Hour,
		HealthInterval:  time.Minute,
		MemoryLimitMB:   4096,
	})
}

func TestRunCleanup_PurgesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	sessions := storagememory.NewSessionStore()

	fresh := domain.NewSession(1, 1, "fresh")
	require.NoError(t, sessions.Save(ctx, fresh))

	stale := domain.NewSession(2, 2, "stale")
	stale.LastActivity = time.Now().Add(-2 * time.Hour)
	require.NoError(t, sessions.Save(ctx, stale))

	metrics := &gaugeMetrics{}
	r := newTestRunner(t, sessions, metrics)

	r.runCleanup(ctx)

	_, err := sessions.Get(ctx, 1)
	assert.NoError(t, err)
	_, err = sessions.Get(ctx, 2)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	assert.Equal(t, 1, metrics.activeSessions)

	status := r.Status()
	assert.Equal(t, 1, status.CleanedSessions)
	assert.Equal(t, 1, status.ActiveSessions)
	assert.False(t, status.LastCleanup.IsZero())
}

func TestRunHealthCheck_SetsGauges(t *testing.T) {
	ctx := context.Background()
	sessions := storagememory.NewSessionStore()
	require.NoError(t, sessions.Save(ctx, domain.NewSession(1, 1, "")))

	metrics := &gaugeMetrics{}
	r := newTestRunner(t, sessions, metrics)

	r.runHealthCheck(ctx)

	assert.True(t, metrics.healthySet)
	assert.True(t, metrics.healthy)
	assert.Greater(t, metrics.goroutines, 0)
	assert.Greater(t, metrics.memoryMB, 0.0)
	assert.Equal(t, 1, metrics.activeSessions)

	status := r.Status()
	assert.True(t, status.Healthy)
	assert.Equal(t, 4096, status.MemoryLimitMB)
	assert.False(t, status.LastHealthCheck.IsZero())
}

func TestRunHealthCheck_NoLimitAlwaysHealthy(t *testing.T) {
	sessions := storagememory.NewSessionStore()
	metrics := &gaugeMetrics{}

	r := newTestRunner(t, sessions, metrics)
	r.memoryLimitMB = 0
	r.runHealthCheck(context.Background())
	assert.True(t, r.Status().Healthy)
}

func TestRunBackup_WritesSnapshot(t *testing.T) {
	ctx := context.Background()
	sessions := storagememory.NewSessionStore()
	require.NoError(t, sessions.Save(ctx, domain.NewSession(1, 1, "")))

	r := newTestRunner(t, sessions, &gaugeMetrics{})

	r.runBackup(ctx)

	status := r.Status()
	assert.False(t, status.LastBackup.IsZero())
}

func TestStatus_ReportsUptime(t *testing.T) {
	r := newTestRunner(t, storagememory.NewSessionStore(), &gaugeMetrics{})
	r.started = time.Now().Add(-90 * time.Second)

	status := r.Status()
	assert.NotEmpty(t, status.Uptime)
}
