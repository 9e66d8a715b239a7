package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
)

// EventTopic is the bus topic carrying bot activity events.
const EventTopic = "bot.events"

// Manager coordinates the quiz-creation dialogue: it routes inbound
// updates, tracks per-user sessions, validates submitted quizzes and
// turns them into poll sequences.
type Manager struct {
	sender    ports.Sender
	sessions  ports.SessionStore
	analytics ports.AnalyticsStore
	limiter   ports.RateLimiter
	eventBus  ports.EventBus
	metrics   ports.MetricsCollector
	validator *Validator
	generator ports.Generator
	logger    *zap.Logger

	// Delay between consecutive polls of one quiz
	pollDelay time.Duration

	// Questions per generated quiz
	generateCount int
}

// Config holds bot manager configuration
type Config struct {
	Sender        ports.Sender
	Sessions      ports.SessionStore
	Analytics     ports.AnalyticsStore
	Limiter       ports.RateLimiter
	EventBus      ports.EventBus
	Metrics       ports.MetricsCollector
	Validator     *Validator
	Generator     ports.Generator
	Logger        *zap.Logger
	PollDelay     time.Duration
	GenerateCount int
}

// NewManager creates a new bot manager
func NewManager(cfg *Config) *Manager {
	return &Manager{
		sender:        cfg.Sender,
		sessions:      cfg.Sessions,
		analytics:     cfg.Analytics,
		limiter:       cfg.Limiter,
		eventBus:      cfg.EventBus,
		metrics:       cfg.Metrics,
		validator:     cfg.Validator,
		generator:     cfg.Generator,
		logger:        cfg.Logger,
		pollDelay:     cfg.PollDelay,
		generateCount: cfg.GenerateCount,
	}
}

// HandleUpdate processes one inbound update
func (m *Manager) HandleUpdate(ctx context.Context, update ports.Update) error {
	kind := "message"
	switch {
	case update.IsCommand():
		kind = "command"
	case update.IsCallback():
		kind = "callback"
	}
	m.metrics.IncUpdatesReceived(kind)
	m.publishEvent(ctx, ports.EventUpdateReceived, update.UserID, map[string]interface{}{
		"kind": kind,
	})

	allowed, err := m.limiter.Allow(ctx, update.UserID)
	if err != nil {
		m.logger.Error("rate limiter error",
			zap.Int64("user_id", update.UserID),
			zap.Error(err))
		// Fail open: a broken limiter backend must not take the bot down
		allowed = true
	}
	if !allowed {
		m.metrics.IncRateLimited()
		m.recordAnalytics(ctx, domain.KindRateLimited, update.UserID, 1)
		m.publishEvent(ctx, ports.EventRateLimited, update.UserID, nil)

		_, _ = m.sender.SendMessage(ctx, update.ChatID,
			"⏳ Too many requests, please slow down and try again in a minute.", nil)
		return nil
	}

	m.recordAnalytics(ctx, domain.KindUpdateReceived, update.UserID, 1)

	switch {
	case update.IsCallback():
		return m.handleCallback(ctx, update)
	case update.IsCommand():
		return m.handleCommand(ctx, update)
	default:
		return m.handleQuizSubmission(ctx, update)
	}
}

// handleCommand routes bot commands
func (m *Manager) handleCommand(ctx context.Context, update ports.Update) error {
	m.recordAnalytics(ctx, "cmd_"+update.Command, update.UserID, 1)

	switch update.Command {
	case "start":
		return m.handleStart(ctx, update)
	case "help":
		return m.sendMarkdown(ctx, update.ChatID, helpMessage)
	case "quickstart":
		return m.sendMarkdown(ctx, update.ChatID, quickStartMessage)
	case "template":
		return m.handleTemplate(ctx, update)
	case "status":
		return m.handleStatus(ctx, update)
	case "toggle":
		return m.handleToggle(ctx, update)
	case "generate":
		return m.handleGenerate(ctx, update)
	default:
		_, err := m.sender.SendMessage(ctx, update.ChatID,
			"Unknown command. Use /help to see what I can do.", nil)
		return err
	}
}

// handleStart begins the quiz-creation dialogue
func (m *Manager) handleStart(ctx context.Context, update ports.Update) error {
	session := m.getOrCreateSession(ctx, update)
	session.State = domain.StateChoosingType
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if err := m.sendMarkdown(ctx, update.ChatID, greeting(update.FirstName)); err != nil {
		return err
	}

	return m.sendTypeSelection(ctx, update.ChatID)
}

// handleTemplate sends the JSON template with usage hints
func (m *Manager) handleTemplate(ctx context.Context, update ports.Update) error {
	if err := m.sendMarkdown(ctx, update.ChatID, "*4-option JSON template:*"); err != nil {
		return err
	}
	// The template itself is sent without parse mode so it can be
	// copied verbatim.
	if _, err := m.sender.SendMessage(ctx, update.ChatID, templateJSON, nil); err != nil {
		return err
	}
	return m.sendMarkdown(ctx, update.ChatID,
		"Copy the template above, fill in your questions, and send the JSON back to me.")
}

// handleStatus reports the user's current settings
func (m *Manager) handleStatus(ctx context.Context, update ports.Update) error {
	session := m.getOrCreateSession(ctx, update)
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	active, err := m.sessions.Count(ctx)
	if err != nil {
		m.logger.Warn("failed to count sessions", zap.Error(err))
	}

	name := update.FirstName
	if name == "" {
		name = "User"
	}

	text := fmt.Sprintf(`🟢 *Bot status: active*

👤 *User:* %s
📍 *Chat ID:* `+"`%d`"+`
🎯 *Quiz type:* %s
📊 *Active users:* %d`,
		name, update.ChatID, quizTypeLabel(session.Anonymous), active)

	return m.sendMarkdown(ctx, update.ChatID, text)
}

// handleToggle shows the quiz type chooser with the current setting
func (m *Manager) handleToggle(ctx context.Context, update ports.Update) error {
	session := m.getOrCreateSession(ctx, update)
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	text := fmt.Sprintf("⚙️ *Current setting:* %s\n\nChoose your preferred quiz type:",
		quizTypeLabel(session.Anonymous))

	_, err := m.sender.SendMessage(ctx, update.ChatID, text, &ports.SendOptions{
		ParseMode: "Markdown",
		Keyboard:  typeSelectionKeyboard(),
	})
	return err
}

// handleGenerate builds a quiz from a topic via the LLM and sends it
func (m *Manager) handleGenerate(ctx context.Context, update ports.Update) error {
	if !m.generator.Available() {
		_, err := m.sender.SendMessage(ctx, update.ChatID,
			"Quiz generation is not configured on this bot. Use /template and fill in your own questions.", nil)
		return err
	}

	topic := update.CommandArgs
	if topic == "" {
		_, err := m.sender.SendMessage(ctx, update.ChatID,
			"Give me a topic, for example: /generate the solar system", nil)
		return err
	}

	session := m.getOrCreateSession(ctx, update)
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	progressID, err := m.sender.SendMessage(ctx, update.ChatID,
		fmt.Sprintf("🤖 Writing a %d-question quiz about *%s*...", m.generateCount, topic),
		&ports.SendOptions{ParseMode: "Markdown"})
	if err != nil {
		return err
	}

	quiz, err := m.generator.Generate(ctx, topic, m.generateCount)
	if err != nil {
		m.logger.Warn("quiz generation failed",
			zap.Int64("user_id", update.UserID),
			zap.Error(err))
		return m.editMarkdown(ctx, update.ChatID, progressID,
			"❌ Quiz generation failed, please try again later.")
	}

	m.recordAnalytics(ctx, domain.KindQuizGenerated, update.UserID, len(quiz.Questions))

	if err := m.editMarkdown(ctx, update.ChatID, progressID,
		fmt.Sprintf("✅ Generated *%d* questions. Sending %s polls...",
			len(quiz.Questions), quizTypeLabel(session.Anonymous))); err != nil {
		return err
	}

	return m.sendQuiz(ctx, update, session, quiz, progressID)
}

// handleCallback processes quiz type selection button presses
func (m *Manager) handleCallback(ctx context.Context, update ports.Update) error {
	if err := m.sender.AnswerCallback(ctx, update.CallbackID); err != nil {
		// Expired callbacks are routine; the selection still applies
		m.logger.Debug("failed to answer callback", zap.Error(err))
	}

	if update.CallbackData != callbackAnonymous && update.CallbackData != callbackNonAnonymous {
		return nil
	}

	session := m.getOrCreateSession(ctx, update)
	session.Anonymous = update.CallbackData == callbackAnonymous
	session.State = domain.StateWaitingForJSON
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if err := m.sendMarkdown(ctx, update.ChatID,
		fmt.Sprintf("✅ *%s quiz selected!*", quizTypeLabel(session.Anonymous))); err != nil {
		return err
	}
	if _, err := m.sender.SendMessage(ctx, update.ChatID, templateJSON, nil); err != nil {
		return err
	}
	return m.sendMarkdown(ctx, update.ChatID, jsonRequestMessage)
}

// handleQuizSubmission treats free text as a quiz JSON document
func (m *Manager) handleQuizSubmission(ctx context.Context, update ports.Update) error {
	session := m.getOrCreateSession(ctx, update)
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if session.State != domain.StateWaitingForJSON {
		if err := m.sendMarkdown(ctx, update.ChatID, "🔄 *Let's start properly!*"); err != nil {
			return err
		}
		return m.handleStart(ctx, update)
	}

	m.metrics.IncQuizzesSubmitted("received")
	m.recordAnalytics(ctx, domain.KindQuizSubmitted, update.UserID, 1)
	m.publishEvent(ctx, ports.EventQuizSubmitted, update.UserID, nil)

	progressID, err := m.sender.SendMessage(ctx, update.ChatID,
		"🔄 Processing your quiz JSON...", nil)
	if err != nil {
		return err
	}

	quiz, err := m.validator.Validate([]byte(update.Text))
	if err != nil {
		m.metrics.IncQuizzesSubmitted("invalid")
		m.recordAnalytics(ctx, domain.KindQuizInvalid, update.UserID, 1)
		m.publishEvent(ctx, ports.EventQuizRejected, update.UserID, map[string]interface{}{
			"reason": err.Error(),
		})

		if err := m.editMarkdown(ctx, update.ChatID, progressID,
			fmt.Sprintf("❌ *Invalid quiz:* %s\n\nRestarting...", err.Error())); err != nil {
			return err
		}
		return m.restartCycle(ctx, update, session)
	}

	m.metrics.IncQuizzesSubmitted("valid")
	m.recordAnalytics(ctx, domain.KindQuizValid, update.UserID, 1)

	if err := m.editMarkdown(ctx, update.ChatID, progressID,
		fmt.Sprintf("✅ *%d questions validated!*\nSending %s polls...",
			len(quiz.Questions), quizTypeLabel(session.Anonymous))); err != nil {
		return err
	}

	return m.sendQuiz(ctx, update, session, quiz, progressID)
}

// sendQuiz converts a validated quiz into a poll sequence, reports the
// outcome on the progress message and restarts the dialogue.
func (m *Manager) sendQuiz(ctx context.Context, update ports.Update, session *domain.Session, quiz *domain.Quiz, progressID int) error {
	start := time.Now()
	sent := 0

	for i, question := range quiz.Questions {
		if err := m.sender.SendQuizPoll(ctx, update.ChatID, question, session.Anonymous); err != nil {
			m.metrics.IncPollsFailed(1)
			m.recordAnalytics(ctx, domain.KindPollFailed, update.UserID, 1)
			m.logger.Warn("failed to send poll",
				zap.Int64("user_id", update.UserID),
				zap.Int("question", i+1),
				zap.Error(err))
			continue
		}

		sent++
		m.metrics.IncPollsSent(1)
		m.recordAnalytics(ctx, domain.KindPollSent, update.UserID, 1)
		m.publishEvent(ctx, ports.EventPollSent, update.UserID, map[string]interface{}{
			"question": i + 1,
		})

		if i < len(quiz.Questions)-1 && m.pollDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.pollDelay):
			}
		}
	}

	m.metrics.ObserveQuizSendDuration(time.Since(start))

	if sent == len(quiz.Questions) {
		m.recordAnalytics(ctx, domain.KindQuizCompleted, update.UserID, 1)
		m.publishEvent(ctx, ports.EventQuizCompleted, update.UserID, map[string]interface{}{
			"questions": sent,
		})
		m.logger.Info("quiz delivered",
			zap.Int64("user_id", update.UserID),
			zap.Int("questions", sent),
			zap.Duration("duration", time.Since(start)))

		if err := m.editMarkdown(ctx, update.ChatID, progressID,
			fmt.Sprintf("🎯 *%d %s quizzes sent successfully!* ✅",
				sent, quizTypeLabel(session.Anonymous))); err != nil {
			return err
		}
	} else {
		m.recordAnalytics(ctx, domain.KindQuizPartial, update.UserID, 1)
		m.logger.Warn("quiz partially delivered",
			zap.Int64("user_id", update.UserID),
			zap.Int("sent", sent),
			zap.Int("total", len(quiz.Questions)))

		if err := m.editMarkdown(ctx, update.ChatID, progressID,
			fmt.Sprintf("⚠️ *Partial success:* %d/%d questions sent.\n\nRestarting...",
				sent, len(quiz.Questions))); err != nil {
			return err
		}
	}

	return m.restartCycle(ctx, update, session)
}

// restartCycle puts the user back at the start of the dialogue
func (m *Manager) restartCycle(ctx context.Context, update ports.Update, session *domain.Session) error {
	session.State = domain.StateChoosingType
	session.Touch()
	if err := m.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if err := m.sendMarkdown(ctx, update.ChatID, "🎉 *Ready for another quiz?*"); err != nil {
		return err
	}
	if err := m.sendMarkdown(ctx, update.ChatID, welcomeMessage); err != nil {
		return err
	}
	return m.sendTypeSelection(ctx, update.ChatID)
}

// sendTypeSelection shows the anonymous / non-anonymous chooser
func (m *Manager) sendTypeSelection(ctx context.Context, chatID int64) error {
	_, err := m.sender.SendMessage(ctx, chatID, typeSelectionMessage, &ports.SendOptions{
		ParseMode: "Markdown",
		Keyboard:  typeSelectionKeyboard(),
	})
	return err
}

// getOrCreateSession loads the user session, creating one on first
// contact.
func (m *Manager) getOrCreateSession(ctx context.Context, update ports.Update) *domain.Session {
	session, err := m.sessions.Get(ctx, update.UserID)
	if err != nil {
		if !errors.Is(err, ports.ErrSessionNotFound) {
			m.logger.Warn("failed to load session",
				zap.Int64("user_id", update.UserID),
				zap.Error(err))
		}
		return domain.NewSession(update.UserID, update.ChatID, update.FirstName)
	}

	// Chat can change when the user messages from a different place
	session.ChatID = update.ChatID
	if update.FirstName != "" {
		session.FirstName = update.FirstName
	}
	return session
}

// sendMarkdown sends a Markdown-formatted message
func (m *Manager) sendMarkdown(ctx context.Context, chatID int64, text string) error {
	_, err := m.sender.SendMessage(ctx, chatID, text, &ports.SendOptions{ParseMode: "Markdown"})
	return err
}

// editMarkdown edits a message with Markdown formatting
func (m *Manager) editMarkdown(ctx context.Context, chatID int64, messageID int, text string) error {
	return m.sender.EditMessage(ctx, chatID, messageID, text, &ports.SendOptions{ParseMode: "Markdown"})
}

// recordAnalytics records an analytics event, logging failures
func (m *Manager) recordAnalytics(ctx context.Context, kind string, userID int64, n int) {
	if err := m.analytics.Record(ctx, kind, userID, n); err != nil {
		m.logger.Warn("failed to record analytics",
			zap.String("kind", kind),
			zap.Error(err))
	}
}

// publishEvent publishes a bot activity event to the bus
func (m *Manager) publishEvent(ctx context.Context, eventType ports.EventType, userID int64, data map[string]interface{}) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      data,
	}

	if err := m.eventBus.Publish(ctx, EventTopic, event); err != nil {
		m.logger.Error("failed to publish event",
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
