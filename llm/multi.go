package llm

import (
	"context"
	"errors"
	"log"
)

// ErrAllProvidersFailed reports that every configured provider errored.
var ErrAllProvidersFailed = errors.New("all llm providers failed")

// Multi tries each configured provider in order and returns the first
// success. With no providers configured it degrades to a canned mock
// response so the rest of the system stays exercisable without API keys.
type Multi struct {
	providers []Client
}

// NewMulti creates a fallback chain over the given providers, tried in the
// order supplied.
func NewMulti(providers ...Client) *Multi {
	return &Multi{providers: providers}
}

func (m *Multi) Name() string { return "multi" }

// Providers reports the names of the configured providers in fallback order.
func (m *Multi) Providers() []string {
	names := make([]string, len(m.providers))
	for i, p := range m.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate walks the fallback chain. Individual provider failures are
// logged; the error returned wraps the last failure.
func (m *Multi) Generate(ctx context.Context, req Request) (*Response, error) {
	if len(m.providers) == 0 {
		return &Response{
			Content:    "I'm a mock AI response. Please configure LLM API keys.",
			Provider:   "mock",
			Model:      "mock",
			TokensUsed: 10,
		}, nil
	}

	var lastErr error
	for _, p := range m.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := p.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Printf("[LLM] provider %s failed, trying next: %v", p.Name(), err)
	}
	return nil, errors.Join(ErrAllProvidersFailed, lastErr)
}
