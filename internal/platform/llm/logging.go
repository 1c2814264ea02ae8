package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/recall-api/internal/platform/logger"
)

type purposeKey struct{}

// WithPurpose labels LLM calls made with ctx, e.g. "judge" or "generate".
// The label shows up in the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "".
func PurposeFrom(ctx context.Context) string {
	p, _ := ctx.Value(purposeKey{}).(string)
	return p
}

// LoggingProvider writes one structured log line per LLM request.
type LoggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging wraps p with request logging.
func WithLogging(p Provider, log *slog.Logger) *LoggingProvider {
	if log == nil {
		log = slog.Default()
	}
	return &LoggingProvider{inner: p, logger: log}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	attrs := []any{
		slog.String("model", l.inner.ModelID()),
		slog.String("purpose", PurposeFrom(ctx)),
		slog.Duration("latency", time.Since(start)),
		slog.Bool("structured", req.Schema != nil),
	}
	if resp != nil {
		attrs = append(attrs,
			slog.Int("input_tokens", resp.Usage.InputTokens),
			slog.Int("output_tokens", resp.Usage.OutputTokens),
			slog.String("stop_reason", resp.StopReason))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		log.WarnContext(ctx, "LLM request failed", attrs...)
		return nil, err
	}

	log.DebugContext(ctx, "LLM request completed", attrs...)
	return resp, nil
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
