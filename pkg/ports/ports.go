package ports

import (
	"context"
	"errors"
	"time"

	"github.com/aescanero/quizcast/pkg/domain"
)

// ErrSessionNotFound is returned by SessionStore.Get for unknown users.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists per-user dialogue sessions.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, userID int64) (*domain.Session, error)
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*domain.Session, error)
	Count(ctx context.Context) (int, error)
}

// AnalyticsStore records activity events and aggregates them into the
// counters served by /analytics.
type AnalyticsStore interface {
	Record(ctx context.Context, kind string, userID int64, n int) error
	Summary(ctx context.Context) (*domain.AnalyticsSummary, error)
}

// RateLimiter is a sliding per-user request counter. Allow reports
// whether the user is still within the per-minute budget.
type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (bool, error)
}

// Button is one inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// SendOptions carries optional message formatting.
type SendOptions struct {
	ParseMode string
	Keyboard  [][]Button
}

// Sender is the Telegram surface the bot manager uses. Implementations
// are expected to retry transient failures internally.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, opts *SendOptions) error
	SendQuizPoll(ctx context.Context, chatID int64, question domain.Question, anonymous bool) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// Update is the transport-independent view of one Telegram update. The
// telegram adapter converts library updates into this form so the bot
// manager can be tested without the API client.
type Update struct {
	UpdateID  int
	UserID    int64
	ChatID    int64
	FirstName string

	// Command is set (without the slash) for bot commands; Text holds
	// plain message text otherwise.
	Command     string
	CommandArgs string
	Text        string

	// Callback query fields, set when the update is a button press.
	CallbackID   string
	CallbackData string
}

// IsCommand reports whether the update is a bot command.
func (u Update) IsCommand() bool { return u.Command != "" }

// IsCallback reports whether the update is a callback query.
func (u Update) IsCallback() bool { return u.CallbackID != "" }

// Generator produces a quiz from a topic via an LLM. Available reports
// whether a provider is configured.
type Generator interface {
	Generate(ctx context.Context, topic string, questions int) (*domain.Quiz, error)
	Available() bool
}

// EventType identifies an activity event on the bus.
type EventType string

const (
	EventUpdateReceived EventType = "update.received"
	EventQuizSubmitted  EventType = "quiz.submitted"
	EventQuizRejected   EventType = "quiz.rejected"
	EventPollSent       EventType = "poll.sent"
	EventQuizCompleted  EventType = "quiz.completed"
	EventRateLimited    EventType = "rate.limited"
	EventMaintenance    EventType = "maintenance.run"
)

// Event is one bot activity notification.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	UserID    int64                  `json:"user_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler processes one event.
type EventHandler func(ctx context.Context, event Event) error

// EventBus fans bot activity out to subscribers (analytics recorder,
// debug stream).
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// MetricsCollector abstracts the Prometheus collector so application
// packages stay free of the client library.
type MetricsCollector interface {
	IncUpdatesReceived(kind string)
	IncQuizzesSubmitted(status string)
	IncPollsSent(n int)
	IncPollsFailed(n int)
	IncRetries(method string)
	IncRateLimited()
	ObserveQuizSendDuration(d time.Duration)
	ObserveTelegramLatency(method string, d time.Duration)
	SetActiveSessions(n int)
	SetMemoryUsageMB(mb float64)
	SetGoroutines(n int)
	SetHealthy(healthy bool)
}
