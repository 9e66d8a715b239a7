package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements ports.RateLimiter using per-minute counter
// buckets in Redis. The current bucket is combined with a weighted share
// of the previous one, approximating a sliding window while keeping one
// INCR per request. Counters expire on their own, so the keyspace stays
// bounded.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration

	now func() time.Time
}

// NewRedisLimiter creates a limiter allowing limit requests per window
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether the user is within the request budget and, if
// so, records the request.
func (l *RedisLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	now := l.now()
	bucket := now.Truncate(l.window)
	prevBucket := bucket.Add(-l.window)

	currKey := l.bucketKey(userID, bucket)
	prevKey := l.bucketKey(userID, prevBucket)

	prev, err := l.client.Get(ctx, prevKey).Int64()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to read previous bucket: %w", err)
	}

	curr, err := l.client.Get(ctx, currKey).Int64()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to read current bucket: %w", err)
	}

	// Weight the previous bucket by how much of it still overlaps the
	// sliding window.
	elapsed := now.Sub(bucket)
	weight := 1 - float64(elapsed)/float64(l.window)
	estimated := float64(curr) + float64(prev)*weight

	if estimated >= float64(l.limit) {
		return false, nil
	}

	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, currKey)
	pipe.Expire(ctx, currKey, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record request: %w", err)
	}

	return true, nil
}

// bucketKey returns the Redis key for a user's counter bucket
func (l *RedisLimiter) bucketKey(userID int64, bucket time.Time) string {
	return fmt.Sprintf("quizcast:ratelimit:%d:%d", userID, bucket.Unix())
}
