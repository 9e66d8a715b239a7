package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/domain"
)

const systemPrompt = `You write multiple-choice quizzes. Respond with a single JSON object and nothing else, using exactly this schema:
{"all_q":[{"q":"question text","o":["option a","option b","option c","option d"],"c":1,"e":"short explanation"}]}
Rules: 2-4 options per question, "c" is the zero-based index of the correct option, question text at most 300 characters, options at most 100 characters, explanations at most 200 characters.`

// Generator produces quizzes via the Anthropic Messages API.
type Generator struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator creates a new Anthropic quiz generator
func NewGenerator(apiKey, model string, timeout time.Duration, logger *zap.Logger) *Generator {
	return &Generator{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

// Available reports that a provider is configured
func (g *Generator) Available() bool { return true }

// Generate asks the model for a quiz on the topic and validates the
// result against the bot's own schema before returning it.
func (g *Generator) Generate(ctx context.Context, topic string, questions int) (*domain.Quiz, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Write a quiz with %d questions about: %s", questions, topic)

	start := time.Now()
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	g.logger.Debug("quiz generated",
		zap.String("model", g.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens))

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}

	quiz, err := domain.ParseQuiz([]byte(extractJSON(text.String())))
	if err != nil {
		return nil, fmt.Errorf("model returned unparseable quiz: %w", err)
	}
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("model returned invalid quiz: %w", err)
	}

	return quiz, nil
}

// extractJSON strips any prose the model wrapped around the JSON object
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
