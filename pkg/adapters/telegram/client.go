package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/domain"
	"github.com/aescanero/quizcast/pkg/ports"
)

// Client implements ports.Sender on top of the Bot API. Every outbound
// call is retried with exponential backoff on transient failures, and
// Telegram's 429 retry_after hint is honored. Client-side errors (bad
// chat, malformed markup) are never retried.
type Client struct {
	api     *tgbotapi.BotAPI
	logger  *zap.Logger
	metrics ports.MetricsCollector

	maxRetries int
	retryDelay time.Duration
}

// Config holds Telegram client configuration
type Config struct {
	Token      string
	MaxRetries int
	RetryDelay time.Duration
	Metrics    ports.MetricsCollector
	Logger     *zap.Logger
}

// NewClient creates and authorizes a new Telegram client
func NewClient(cfg *Config) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}

	cfg.Logger.Info("authorized on Telegram",
		zap.String("username", api.Self.UserName))

	return &Client{
		api:        api,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Username returns the authorized bot username
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// SendMessage sends a text message and returns its message ID
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts *ports.SendOptions) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	applyOptions(&msg, opts)

	sent, err := c.sendWithRetry(ctx, "sendMessage", msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of a previously sent message
func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, text string, opts *ports.SendOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if opts != nil {
		edit.ParseMode = opts.ParseMode
		if len(opts.Keyboard) > 0 {
			markup := buildKeyboard(opts.Keyboard)
			edit.ReplyMarkup = &markup
		}
	}

	_, err := c.sendWithRetry(ctx, "editMessageText", edit)
	return err
}

// SendQuizPoll sends one question as a native quiz poll
func (c *Client) SendQuizPoll(ctx context.Context, chatID int64, question domain.Question, anonymous bool) error {
	poll := tgbotapi.NewPoll(chatID, question.Text, question.Options...)
	poll.Type = "quiz"
	poll.CorrectOptionID = int64(question.Correct)
	poll.IsAnonymous = anonymous
	if question.Explanation != "" {
		poll.Explanation = question.Explanation
	}

	_, err := c.sendWithRetry(ctx, "sendPoll", poll)
	return err
}

// AnswerCallback acknowledges a callback query so the client stops
// showing a progress indicator
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	callback := tgbotapi.NewCallback(callbackID, "")

	start := time.Now()
	_, err := c.api.Request(callback)
	c.metrics.ObserveTelegramLatency("answerCallbackQuery", time.Since(start))
	if err != nil {
		// Stale callbacks expire server-side; not worth retrying
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// Poll starts long polling and returns the converted update stream.
// The channel closes when ctx is cancelled.
func (c *Client) Poll(ctx context.Context) <-chan ports.Update {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	raw := c.api.GetUpdatesChan(u)
	out := make(chan ports.Update)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				c.api.StopReceivingUpdates()
				return
			case update, ok := <-raw:
				if !ok {
					return
				}
				converted, ok := ConvertUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- converted:
				case <-ctx.Done():
					c.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()

	return out
}

// SetWebhook registers the webhook URL with Telegram
func (c *Client) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	if _, err := c.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	c.logger.Info("webhook set", zap.String("url", url))
	return nil
}

// DeleteWebhook removes a previously registered webhook so long polling
// can take over
func (c *Client) DeleteWebhook() error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// ConvertUpdate maps a library update onto the transport-independent
// form. The second return is false for update kinds the bot ignores.
func ConvertUpdate(update tgbotapi.Update) (ports.Update, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		u := ports.Update{
			UpdateID:  update.UpdateID,
			UserID:    update.Message.From.ID,
			ChatID:    update.Message.Chat.ID,
			FirstName: update.Message.From.FirstName,
		}
		if update.Message.IsCommand() {
			u.Command = update.Message.Command()
			u.CommandArgs = update.Message.CommandArguments()
		} else {
			u.Text = update.Message.Text
		}
		return u, true

	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return ports.Update{
			UpdateID:     update.UpdateID,
			UserID:       update.CallbackQuery.From.ID,
			ChatID:       update.CallbackQuery.Message.Chat.ID,
			FirstName:    update.CallbackQuery.From.FirstName,
			CallbackID:   update.CallbackQuery.ID,
			CallbackData: update.CallbackQuery.Data,
		}, true
	}

	return ports.Update{}, false
}

// sendWithRetry sends a chattable with backoff on transient failures
func (c *Client) sendWithRetry(ctx context.Context, method string, msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		start := time.Now()
		sent, err := c.api.Send(msg)
		c.metrics.ObserveTelegramLatency(method, time.Since(start))

		if err == nil {
			return sent, nil
		}
		lastErr = err

		wait, retry := RetryDelay(err, c.retryDelay, attempt)
		if !retry {
			return tgbotapi.Message{}, fmt.Errorf("%s: %w", method, err)
		}
		if attempt == c.maxRetries {
			break
		}

		c.metrics.IncRetries(method)
		c.logger.Warn("telegram call failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return tgbotapi.Message{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	return tgbotapi.Message{}, fmt.Errorf("%s failed after %d attempts: %w", method, c.maxRetries, lastErr)
}

// RetryDelay classifies a Telegram API error and returns how long to
// wait before the given retry attempt. Flood control (429) uses the
// server's retry_after hint; other API errors below 500 are permanent;
// everything else backs off linearly on the base delay.
func RetryDelay(err error, base time.Duration, attempt int) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.RetryAfter > 0 {
			return time.Duration(apiErr.RetryAfter+1) * time.Second, true
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return 0, false
		}
	}

	return base * time.Duration(attempt), true
}

// applyOptions copies send options onto a message config
func applyOptions(msg *tgbotapi.MessageConfig, opts *ports.SendOptions) {
	if opts == nil {
		return
	}
	msg.ParseMode = opts.ParseMode
	if len(opts.Keyboard) > 0 {
		msg.ReplyMarkup = buildKeyboard(opts.Keyboard)
	}
}

// buildKeyboard converts port buttons into an inline keyboard markup
func buildKeyboard(rows [][]ports.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
