package maintenance

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/adapters/backup"
	"github.com/aescanero/quizcast/pkg/ports"
)

// Pruner removes expired rate-limit state. The in-memory limiter needs
// periodic pruning; backends with native TTLs satisfy this with a no-op.
type Pruner interface {
	Prune()
}

// Status is a point-in-time snapshot of the background tasks, served by
// the health endpoint.
type Status struct {
	Healthy         bool      `json:"healthy"`
	Uptime          string    `json:"uptime"`
	ActiveSessions  int       `json:"active_sessions"`
	Goroutines      int       `json:"goroutines"`
	MemoryUsageMB   float64   `json:"memory_usage_mb"`
	MemoryLimitMB   int       `json:"memory_limit_mb"`
	LastHealthCheck time.Time `json:"last_health_check"`
	LastCleanup     time.Time `json:"last_cleanup,omitempty"`
	LastBackup      time.Time `json:"last_backup,omitempty"`
	CleanedSessions int       `json:"cleaned_sessions"`
}

// Runner drives the scheduled background tasks: session cleanup,
// snapshot backups and the periodic health probe.
type Runner struct {
	sessions ports.SessionStore
	limiter  Pruner
	backup   *backup.Writer
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	retention       time.Duration
	cleanupInterval time.Duration
	backupInterval  time.Duration
	healthInterval  time.Duration
	memoryLimitMB   int

	mu      sync.RWMutex
	status  Status
	started time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// Config holds maintenance runner configuration
type Config struct {
	Sessions ports.SessionStore
	Limiter  Pruner
	Backup   *backup.Writer
	EventBus ports.EventBus
	Metrics  ports.MetricsCollector
	Logger   *zap.Logger

	Retention       time.Duration
	CleanupInterval time.Duration
	BackupInterval  time.Duration
	HealthInterval  time.Duration
	MemoryLimitMB   int
}

// NewRunner creates a new maintenance runner
func NewRunner(cfg *Config) *Runner {
	return &Runner{
		sessions:        cfg.Sessions,
		limiter:         cfg.Limiter,
		backup:          cfg.Backup,
		eventBus:        cfg.EventBus,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		retention:       cfg.Retention,
		cleanupInterval: cfg.CleanupInterval,
		backupInterval:  cfg.BackupInterval,
		healthInterval:  cfg.HealthInterval,
		memoryLimitMB:   cfg.MemoryLimitMB,
		status:          Status{Healthy: true},
		done:            make(chan struct{}),
	}
}

// Start launches the background task loop
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.started = time.Now()

	r.logger.Info("starting maintenance runner",
		zap.Duration("cleanup_interval", r.cleanupInterval),
		zap.Duration("backup_interval", r.backupInterval),
		zap.Duration("health_interval", r.healthInterval))

	// Establish a baseline before the first tick
	r.runHealthCheck(ctx)

	go r.loop(ctx)
}

// Stop halts the background loop and waits for it to exit
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	r.logger.Info("maintenance runner stopped")
}

// Status returns the latest health snapshot
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.status
	s.Uptime = time.Since(r.started).Round(time.Second).String()
	return s
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	cleanup := time.NewTicker(r.cleanupInterval)
	defer cleanup.Stop()
	health := time.NewTicker(r.healthInterval)
	defer health.Stop()
	snapshot := time.NewTicker(r.backupInterval)
	defer snapshot.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanup.C:
			r.runCleanup(ctx)
		case <-health.C:
			r.runHealthCheck(ctx)
		case <-snapshot.C:
			r.runBackup(ctx)
		}
	}
}

// runCleanup purges expired sessions and prunes rate-limit state
func (r *Runner) runCleanup(ctx context.Context) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		r.logger.Error("cleanup: failed to list sessions", zap.Error(err))
		return
	}

	cleaned := 0
	for _, session := range sessions {
		if session.Expired(r.retention) {
			if err := r.sessions.Delete(ctx, session.UserID); err != nil {
				r.logger.Warn("cleanup: failed to delete session",
					zap.Int64("user_id", session.UserID),
					zap.Error(err))
				continue
			}
			cleaned++
		}
	}

	if r.limiter != nil {
		r.limiter.Prune()
	}

	active := len(sessions) - cleaned
	r.metrics.SetActiveSessions(active)

	r.mu.Lock()
	r.status.LastCleanup = time.Now()
	r.status.CleanedSessions = cleaned
	r.status.ActiveSessions = active
	r.mu.Unlock()

	if cleaned > 0 {
		r.logger.Info("cleanup complete",
			zap.Int("cleaned", cleaned),
			zap.Int("active", active))
	}

	r.publishMaintenance(ctx, "cleanup", map[string]interface{}{
		"cleaned": cleaned,
		"active":  active,
	})
}

// runBackup writes a snapshot of sessions and analytics to disk
func (r *Runner) runBackup(ctx context.Context) {
	if r.backup == nil {
		return
	}

	path, err := r.backup.Run(ctx)
	if err != nil {
		r.logger.Error("backup failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.status.LastBackup = time.Now()
	r.mu.Unlock()

	r.publishMaintenance(ctx, "backup", map[string]interface{}{
		"path": path,
	})
}

// runHealthCheck samples runtime health and updates gauges
func (r *Runner) runHealthCheck(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	memMB := float64(mem.HeapAlloc) / (1024 * 1024)
	goroutines := runtime.NumGoroutine()
	healthy := r.memoryLimitMB <= 0 || memMB < float64(r.memoryLimitMB)

	r.metrics.SetMemoryUsageMB(memMB)
	r.metrics.SetGoroutines(goroutines)
	r.metrics.SetHealthy(healthy)

	active, err := r.sessions.Count(ctx)
	if err != nil {
		r.logger.Warn("health check: failed to count sessions", zap.Error(err))
		active = -1
	} else {
		r.metrics.SetActiveSessions(active)
	}

	r.mu.Lock()
	r.status.Healthy = healthy
	r.status.Goroutines = goroutines
	r.status.MemoryUsageMB = memMB
	r.status.MemoryLimitMB = r.memoryLimitMB
	r.status.LastHealthCheck = time.Now()
	if active >= 0 {
		r.status.ActiveSessions = active
	}
	r.mu.Unlock()

	if !healthy {
		r.logger.Warn("memory usage over limit",
			zap.Float64("memory_mb", memMB),
			zap.Int("limit_mb", r.memoryLimitMB))
	}
}

func (r *Runner) publishMaintenance(ctx context.Context, task string, data map[string]interface{}) {
	if r.eventBus == nil {
		return
	}

	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventMaintenance,
		Timestamp: time.Now(),
		Data:      data,
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	event.Data["task"] = task

	if err := r.eventBus.Publish(ctx, "maintenance.events", event); err != nil {
		r.logger.Warn("failed to publish maintenance event",
			zap.String("task", task),
			zap.Error(err))
	}
}
