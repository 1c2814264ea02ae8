package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/phrazzld/recall-api/internal/platform/logger"
)

// RetryConfig controls how RetryProvider retries transient failures.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the first backoff delay. It doubles on every retry.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff delay. Zero means 30 seconds.
	MaxDelay time.Duration

	// AttemptTimeout bounds each individual call. Zero means no bound.
	AttemptTimeout time.Duration
}

// RetryProvider retries transient provider errors with exponential backoff.
// Content blocks, truncation and cancellation are returned immediately. An
// invalid response is retried once, since a second sample usually parses.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
	logger *slog.Logger
}

// WithRetry wraps p with retry logic.
func WithRetry(p Provider, cfg RetryConfig, log *slog.Logger) *RetryProvider {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &RetryProvider{inner: p, config: cfg, logger: log}
}

// Generate calls the wrapped provider until it succeeds, a permanent error
// occurs, or the retries are used up. The last error is returned unwrapped.
func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	var resp *Response
	var lastErr error
	invalidRetried := false
	attempt := 0

	err := retry.Do(
		func() error {
			attempt++
			callCtx, cancel := r.attemptContext(ctx)
			defer cancel()

			out, err := r.inner.Generate(callCtx, req)
			if err == nil {
				resp = out
				return nil
			}
			lastErr = err
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				return retry.Unrecoverable(ctx.Err())
			}
			if !shouldRetry(err, &invalidRetried) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.config.MaxRetries+1)),
		retry.Delay(r.config.BaseDelay),
		retry.MaxDelay(r.config.MaxDelay),
		retry.DelayType(backoffDelay),
		retry.OnRetry(func(n uint, err error) {
			log.WarnContext(ctx, "LLM call failed, retrying",
				slog.Int("attempt", int(n)+1),
				slog.Int("max_attempts", r.config.MaxRetries+1),
				slog.String("model", r.inner.ModelID()),
				slog.String("error", err.Error()))
		}),
	)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case lastErr != nil:
			err = lastErr
		}
		log.ErrorContext(ctx, "LLM call gave up",
			slog.Int("attempts", attempt),
			slog.String("model", r.inner.ModelID()),
			slog.String("error", err.Error()))
		return nil, err
	}
	return resp, nil
}

// ModelID returns the wrapped provider's model.
func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

func (r *RetryProvider) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.AttemptTimeout > 0 {
		return context.WithTimeout(ctx, r.config.AttemptTimeout)
	}
	return context.WithCancel(ctx)
}

// backoffDelay honours a provider supplied Retry-After and otherwise falls
// back to exponential backoff.
func backoffDelay(n uint, err error, config *retry.Config) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return retry.BackOffDelay(n, err, config)
}

func shouldRetry(err error, invalidRetried *bool) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsPermanent(err) {
		return false
	}

	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}

	// Rate limits, outages, per-attempt timeouts and network errors.
	return true
}
