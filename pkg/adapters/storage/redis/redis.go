package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "quizcast:session:"

// SessionStore implements ports.SessionStore using Redis. Sessions are
// stored as JSON with a TTL equal to the retention window, so Redis
// itself enforces the retention bound even if cleanup lags.
type SessionStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewSessionStore creates a new Redis session store
func NewSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Save persists a session with the retention TTL
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	key := getSessionKey(session.UserID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug("session saved",
		zap.Int64("user_id", session.UserID),
		zap.String("state", string(session.State)))

	return nil
}

// Get retrieves a session by user ID
func (s *SessionStore) Get(ctx context.Context, userID int64) (*domain.Session, error) {
	key := getSessionKey(userID)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ports.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Delete removes a session by user ID
func (s *SessionStore) Delete(ctx context.Context, userID int64) error {
	key := getSessionKey(userID)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// List returns all stored sessions
func (s *SessionStore) List(ctx context.Context) ([]*domain.Session, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]*domain.Session, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			// Key expired between scan and get
			continue
		}

		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			s.logger.Warn("skipping malformed session", zap.String("key", key))
			continue
		}

		sessions = append(sessions, &session)
	}

	return sessions, nil
}

// Count returns the number of stored sessions
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// scanKeys iterates the session keyspace with SCAN
func (s *SessionStore) scanKeys(ctx context.Context) ([]string, error) {
	var cursor uint64
	var keys []string

	for {
		var batch []string
		var err error

		batch, cursor, err = s.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan keys: %w", err)
		}

		keys = append(keys, batch...)

		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

// getSessionKey returns the Redis key for a user session
func getSessionKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}
