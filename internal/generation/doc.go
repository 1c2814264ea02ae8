// Package generation defines the collaborators the retention engine calls out
// to: a question generator that turns a (concept, content) pair into a
// reviewable question, a judge that decides whether a free-text answer is
// correct, and an explainer that re-explains a concept after a wrong answer.
//
// Two implementations are provided. The LLM-backed ones render embedded
// prompt templates and ask an llm.Provider for schema-constrained JSON. The
// offline ones are deterministic and need no network, which makes them the
// default for local development and tests.
package generation
