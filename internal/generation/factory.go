package generation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/recall-api/internal/config"
	"github.com/phrazzld/recall-api/internal/platform/llm"
)

// New returns the collaborators selected by cfg.Provider. "offline" needs no
// credentials; every other provider goes through llm.NewProvider.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Collaborators, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Provider == "offline" {
		logger.Info("using offline question generator and judge")
		return NewOffline(), nil
	}

	provider, err := llm.NewProvider(ctx, cfg, logger)
	if err != nil {
		return Collaborators{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return NewLLM(provider, cfg, logger), nil
}

// NewLLM returns collaborators backed by provider.
func NewLLM(provider llm.Provider, cfg config.LLMConfig, logger *slog.Logger) Collaborators {
	return Collaborators{
		Generator: NewLLMQuestionGenerator(provider, cfg, logger),
		Judge:     NewLLMJudge(provider, cfg, logger),
		Explainer: NewLLMExplainer(provider, cfg, logger),
	}
}
