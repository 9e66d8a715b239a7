package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/quizcast/pkg/adapters/llm/anthropic"
	"github.com/aescanero/quizcast/pkg/ports"
)

// Config holds LLM generator configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewGenerator creates a quiz generator based on provider. An empty API
// key yields a disabled generator rather than an error, so deployments
// without a key simply lose the /generate command.
func NewGenerator(cfg *Config) (ports.Generator, error) {
	if cfg.APIKey == "" {
		return disabledGenerator{}, nil
	}

	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewGenerator(cfg.APIKey, cfg.Model, cfg.Timeout, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
