package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS analytics_events (
    id         BIGSERIAL PRIMARY KEY,
    kind       TEXT        NOT NULL,
    user_id    BIGINT      NOT NULL DEFAULT 0,
    quantity   INT         NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_analytics_events_kind ON analytics_events (kind);
CREATE INDEX IF NOT EXISTS idx_analytics_events_created_at ON analytics_events (created_at);
`

// Store implements ports.AnalyticsStore on PostgreSQL. Events are
// append-only rows; counters are aggregated at query time, which is
// cheap at this volume.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStore connects to PostgreSQL and bootstraps the schema
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	logger.Info("analytics store connected")

	return &Store{pool: pool, logger: logger}, nil
}

// Record adds n occurrences of kind for a user
func (s *Store) Record(ctx context.Context, kind string, userID int64, n int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO analytics_events (kind, user_id, quantity) VALUES ($1, $2, $3)`,
		kind, userID, n)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Summary aggregates the recorded events into counters
func (s *Store) Summary(ctx context.Context) (*domain.AnalyticsSummary, error) {
	summary := &domain.AnalyticsSummary{
		Totals:      make(map[string]int64),
		Last24h:     make(map[string]int64),
		GeneratedAt: time.Now(),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT kind, SUM(quantity) FROM analytics_events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	for rows.Next() {
		var kind string
		var total int64
		if err := rows.Scan(&kind, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		summary.Totals[kind] = total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read totals: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT kind, SUM(quantity) FROM analytics_events
		 WHERE created_at > now() - interval '24 hours' GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to query last 24h: %w", err)
	}
	for rows.Next() {
		var kind string
		var total int64
		if err := rows.Scan(&kind, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan last 24h: %w", err)
		}
		summary.Last24h[kind] = total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read last 24h: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM analytics_events WHERE user_id <> 0`).
		Scan(&summary.DistinctUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return summary, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}
