package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdf-rag-backend/internal/logger"
)

// ErrNoProviderConfigured is returned when the generation chain is empty.
// The caller must surface this explicitly, never an empty answer.
var ErrNoProviderConfigured = errors.New("no generation provider configured")

// UpstreamError wraps a single provider's failure so callers can tell
// "upstream failed" apart from "nothing configured".
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Provider is one text-in/text-out generation capability. Adding a new
// backend means adding one implementation to the chain, not editing
// branches.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chain tries providers in order until one succeeds. An empty (but
// error-free) result counts as success here; substituting fallback text
// for empty answers is the pipeline's responsibility.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Configured reports whether at least one provider is available.
func (c *Chain) Configured() bool { return len(c.providers) > 0 }

func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviderConfigured
	}

	var failures []error
	for _, p := range c.providers {
		answer, err := p.Generate(ctx, prompt)
		if err == nil {
			return strings.TrimSpace(answer), nil
		}
		logger.Warn("Generation provider failed, falling through",
			"provider", p.Name(), "error", err)
		failures = append(failures, &UpstreamError{Provider: p.Name(), Err: err})
	}

	return "", fmt.Errorf("all generation providers failed: %w", errors.Join(failures...))
}
