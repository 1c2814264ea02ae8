// Package llm provides a provider-neutral client for large language models.
// Gemini, OpenAI and Anthropic are supported behind the Provider interface.
// Responses can be constrained to a JSON schema and are validated locally
// before they are returned, so callers only ever see well-formed JSON.
//
// Providers are composed with decorators: NewProvider returns the selected
// backend wrapped with structured logging and bounded retries.
package llm
