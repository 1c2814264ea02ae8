package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownProvider is returned by NewProvider for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown LLM provider")

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrContentBlocked indicates the provider refused the prompt or the answer
// on safety grounds. Retrying does not help.
type ErrContentBlocked struct {
	Reason string
}

func (e *ErrContentBlocked) Error() string {
	return fmt.Sprintf("content blocked by provider: %s", e.Reason)
}

// ErrRequestRejected indicates the provider refused the request itself,
// e.g. a bad key or a malformed schema. Retrying does not help.
type ErrRequestRejected struct {
	StatusCode int
	Err        error
}

func (e *ErrRequestRejected) Error() string {
	return fmt.Sprintf("LLM request rejected (status %d): %v", e.StatusCode, e.Err)
}

func (e *ErrRequestRejected) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// IsPermanent reports whether retrying the same request cannot succeed.
func IsPermanent(err error) bool {
	var blocked *ErrContentBlocked
	var maxTok *ErrMaxTokensExceeded
	var rejected *ErrRequestRejected
	return errors.As(err, &blocked) || errors.As(err, &maxTok) || errors.As(err, &rejected)
}
