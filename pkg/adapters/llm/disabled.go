package llm

import (
	"context"
	"errors"

	"github.com/aescanero/quizcast/pkg/domain"
)

// ErrGeneratorDisabled is returned when no LLM provider is configured.
var ErrGeneratorDisabled = errors.New("quiz generation is not configured")

type disabledGenerator struct{}

func (disabledGenerator) Generate(ctx context.Context, topic string, questions int) (*domain.Quiz, error) {
	return nil, ErrGeneratorDisabled
}

func (disabledGenerator) Available() bool { return false }
