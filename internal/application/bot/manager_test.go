package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/adapters/analytics/memory"
	eventsmemory "github.com/aescanero/quizcast/pkg/adapters/events/memory"
	storagememory "github.com/aescanero/quizcast/pkg/adapters/storage/memory"
	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
)

// fakeSender records every outbound call for assertions
type fakeSender struct {
	messages  []string
	edits     []string
	polls     []domain.Question
	pollAnon  []bool
	callbacks []string
	nextID    int

	pollAttempts int
	failPollAt   int // 1-based poll attempt that fails, 0 = never
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, opts *ports.SendOptions) (int, error) {
	f.messages = append(f.messages, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeSender) EditMessage(ctx context.Context, chatID int64, messageID int, text string, opts *ports.SendOptions) error {
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeSender) SendQuizPoll(ctx context.Context, chatID int64, question domain.Question, anonymous bool) error {
	f.pollAttempts++
	if f.failPollAt > 0 && f.pollAttempts == f.failPollAt {
		return fmt.Errorf("poll send failed")
	}
	f.polls = append(f.polls, question)
	f.pollAnon = append(f.pollAnon, anonymous)
	return nil
}

func (f *fakeSender) AnswerCallback(ctx context.Context, callbackID string) error {
	f.callbacks = append(f.callbacks, callbackID)
	return nil
}

// allowAllLimiter never rejects
type allowAllLimiter struct{}

func (allowAllLimiter) Allow(ctx context.Context, userID int64) (bool, error) { return true, nil }

// denyAllLimiter always rejects
type denyAllLimiter struct{}

func (denyAllLimiter) Allow(ctx context.Context, userID int64) (bool, error) { return false, nil }

// nopMetrics satisfies ports.MetricsCollector for tests
type nopMetrics struct{}

func (nopMetrics) IncUpdatesReceived(kind string)                        {}
func (nopMetrics) IncQuizzesSubmitted(status string)                     {}
func (nopMetrics) IncPollsSent(n int)                                    {}
func (nopMetrics) IncPollsFailed(n int)                                  {}
func (nopMetrics) IncRetries(method string)                              {}
func (nopMetrics) IncRateLimited()                                       {}
func (nopMetrics) ObserveQuizSendDuration(d time.Duration)               {}
func (nopMetrics) ObserveTelegramLatency(method string, d time.Duration) {}
func (nopMetrics) SetActiveSessions(n int)                               {}
func (nopMetrics) SetMemoryUsageMB(mb float64)                           {}
func (nopMetrics) SetGoroutines(n int)                                   {}
func (nopMetrics) SetHealthy(healthy bool)                               {}

// disabledGen reports itself unavailable
type disabledGen struct{}

func (disabledGen) Generate(ctx context.Context, topic string, questions int) (*domain.Quiz, error) {
	return nil, fmt.Errorf("disabled")
}
func (disabledGen) Available() bool { return false }

// fixedGen returns a canned quiz
type fixedGen struct {
	quiz *domain.Quiz
}

func (g fixedGen) Generate(ctx context.Context, topic string, questions int) (*domain.Quiz, error) {
	return g.quiz, nil
}
func (g fixedGen) Available() bool { return true }

type fixture struct {
	manager  *Manager
	sender   *fakeSender
	sessions ports.SessionStore
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	sender := &fakeSender{}
	sessions := storagememory.NewSessionStore()

	cfg := &Config{
		Sender:        sender,
		Sessions:      sessions,
		Analytics:     memory.NewStore(24 * time.Hour),
		Limiter:       allowAllLimiter{},
		EventBus:      eventsmemory.NewInMemoryEventBus(),
		Metrics:       nopMetrics{},
		Validator:     NewValidator(),
		Generator:     disabledGen{},
		Logger:        zap.NewNop(),
		PollDelay:     0,
		GenerateCount: 3,
	}
	if mutate != nil {
		mutate(cfg)
	}

	return &fixture{
		manager:  NewManager(cfg),
		sender:   sender,
		sessions: sessions,
	}
}

func startUpdate() ports.Update {
	return ports.Update{UpdateID: 1, UserID: 42, ChatID: 100, FirstName: "Ada", Command: "start"}
}

func TestHandleStart_CreatesSessionAndShowsChooser(t *testing.T) {
	f := newFixture(t, nil)

	err := f.manager.HandleUpdate(context.Background(), startUpdate())
	require.NoError(t, err)

	session, err := f.sessions.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StateChoosingType, session.State)
	assert.True(t, session.Anonymous)

	// Greeting plus type chooser
	require.Len(t, f.sender.messages, 2)
	assert.Contains(t, f.sender.messages[0], "Ada")
}

func TestHandleCallback_SetsTypeAndRequestsJSON(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.manager.HandleUpdate(ctx, startUpdate()))

	err := f.manager.HandleUpdate(ctx, ports.Update{
		UpdateID:     2,
		UserID:       42,
		ChatID:       100,
		CallbackID:   "cb-1",
		CallbackData: "anonymous_false",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cb-1"}, f.sender.callbacks)

	session, err := f.sessions.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StateWaitingForJSON, session.State)
	assert.False(t, session.Anonymous)

	// Confirmation, template, next-steps
	last := f.sender.messages[len(f.sender.messages)-2]
	assert.Equal(t, templateJSON, last)
}

func TestQuizSubmission_FullDelivery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.manager.HandleUpdate(ctx, startUpdate()))
	require.NoError(t, f.manager.HandleUpdate(ctx, ports.Update{
		UserID: 42, ChatID: 100, CallbackID: "cb", CallbackData: "anonymous_true",
	}))

	err := f.manager.HandleUpdate(ctx, ports.Update{
		UserID: 42,
		ChatID: 100,
		Text:   `{"all_q":[{"q":"2+2?","o":["3","4"],"c":1},{"q":"3+3?","o":["5","6"],"c":1}]}`,
	})
	require.NoError(t, err)

	require.Len(t, f.sender.polls, 2)
	assert.Equal(t, "2+2?", f.sender.polls[0].Text)
	assert.True(t, f.sender.pollAnon[0])

	// Completion report edited onto the progress message
	require.NotEmpty(t, f.sender.edits)
	assert.Contains(t, f.sender.edits[len(f.sender.edits)-1], "2")

	// Dialogue restarts for the next quiz
	session, err := f.sessions.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StateChoosingType, session.State)
}

func TestQuizSubmission_PartialDelivery(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Sender.(*fakeSender).failPollAt = 2
	})
	ctx := context.Background()

	require.NoError(t, f.manager.HandleUpdate(ctx, startUpdate()))
	require.NoError(t, f.manager.HandleUpdate(ctx, ports.Update{
		UserID: 42, ChatID: 100, CallbackID: "cb", CallbackData: "anonymous_true",
	}))

	err := f.manager.HandleUpdate(ctx, ports.Update{
		UserID: 42,
		ChatID: 100,
		Text:   `{"all_q":[{"q":"A?","o":["1","2"],"c":0},{"q":"B?","o":["1","2"],"c":0},{"q":"C?","o":["1","2"],"c":1}]}`,
	})
	require.NoError(t, err)

	// Second poll failed, the other two went out; every question was
	// still attempted.
	assert.Equal(t, 3, f.sender.pollAttempts)
	require.Len(t, f.sender.polls, 2)
	assert.Equal(t, "A?", f.sender.polls[0].Text)
	assert.Equal(t, "C?", f.sender.polls[1].Text)

	require.NotEmpty(t, f.sender.edits)
	assert.Contains(t, f.sender.edits[len(f.sender.edits)-1], "2/3")
}

func TestQuizSubmission_InvalidJSONRestarts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.manager.HandleUpdate(ctx, startUpdate()))
	require.NoError(t, f.manager.HandleUpdate(ctx, ports.Update{
		UserID: 42, ChatID: 100, CallbackID: "cb", CallbackData: "anonymous_true",
	}))

	err := f.manager.HandleUpdate(ctx, ports.Update{
		UserID: 42, ChatID: 100, Text: `{"all_q":[]}`,
	})
	require.NoError(t, err)

	assert.Empty(t, f.sender.polls)
	require.NotEmpty(t, f.sender.edits)
	assert.Contains(t, f.sender.edits[0], "Invalid quiz")

	session, err := f.sessions.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StateChoosingType, session.State)
}

func TestTextWithoutState_RestartsDialogue(t *testing.T) {
	f := newFixture(t, nil)

	err := f.manager.HandleUpdate(context.Background(), ports.Update{
		UserID: 42, ChatID: 100, Text: "hello there",
	})
	require.NoError(t, err)

	assert.Empty(t, f.sender.polls)
	// Restart notice, greeting, type chooser
	assert.GreaterOrEqual(t, len(f.sender.messages), 3)
}

func TestRateLimited_UpdateDropped(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Limiter = denyAllLimiter{}
	})

	err := f.manager.HandleUpdate(context.Background(), startUpdate())
	require.NoError(t, err)

	// Only the slow-down notice, no dialogue progress
	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "slow down")

	_, err = f.sessions.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestToggleCommand_ShowsCurrentSetting(t *testing.T) {
	f := newFixture(t, nil)

	err := f.manager.HandleUpdate(context.Background(), ports.Update{
		UserID: 42, ChatID: 100, Command: "toggle",
	})
	require.NoError(t, err)

	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "Anonymous")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, nil)

	err := f.manager.HandleUpdate(context.Background(), ports.Update{
		UserID: 42, ChatID: 100, Command: "bogus",
	})
	require.NoError(t, err)

	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "/help")
}

func TestGenerate_Disabled(t *testing.T) {
	f := newFixture(t, nil)

	err := f.manager.HandleUpdate(context.Background(), ports.Update{
		UserID: 42, ChatID: 100, Command: "generate", CommandArgs: "space",
	})
	require.NoError(t, err)

	assert.Empty(t, f.sender.polls)
	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "not configured")
}

func TestGenerate_MissingTopic(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Generator = fixedGen{quiz: &domain.Quiz{Questions: []domain.Question{
			{Text: "Q", Options: []string{"A", "B"}, Correct: 0},
		}}}
	})

	err := f.manager.HandleUpdate(context.Background(), ports.Update{
		UserID: 42, ChatID: 100, Command: "generate",
	})
	require.NoError(t, err)

	assert.Empty(t, f.sender.polls)
	require.Len(t, f.sender.messages, 1)
	assert.Contains(t, f.sender.messages[0], "topic")
}

func TestGenerate_SendsGeneratedQuiz(t *testing.T) {
	f := newFixture(t, func(cfg *Config) {
		cfg.Generator = fixedGen{quiz: &domain.Quiz{Questions: []domain.Question{
			{Text: "Largest planet?", Options: []string{"Mars", "Jupiter"}, Correct: 1},
			{Text: "Closest star?", Options: []string{"Sun", "Sirius"}, Correct: 0},
		}}}
	})

	err := f.manager.HandleUpdate(context.Background(), ports.Update{
		UserID: 42, ChatID: 100, Command: "generate", CommandArgs: "the solar system",
	})
	require.NoError(t, err)

	require.Len(t, f.sender.polls, 2)
	assert.Equal(t, "Largest planet?", f.sender.polls[0].Text)
}
