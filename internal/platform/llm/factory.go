package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/recall-api/internal/config"
)

// NewProvider builds the configured provider wrapped as
// caller -> retry -> logging -> backend.
//
// The "offline" provider has no LLM backend and is rejected with
// ErrUnknownProvider; callers wire the local collaborators instead.
func NewProvider(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "llm"))

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.BaseURL, cfg.Model)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logger.Info("LLM provider initialized",
		slog.String("provider", cfg.Provider),
		slog.String("model", base.ModelID()))

	return WithRetry(WithLogging(base, logger), RetryConfig{
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.RetryDelay,
		AttemptTimeout: cfg.Timeout,
	}, logger), nil
}
