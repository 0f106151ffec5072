package websearch

import (
	"context"
	"strings"
)

// Mock returns canned results keyed by query substring. It backs keyless
// deployments and tests.
type Mock struct {
	canned map[string][]Result
}

// NewMock creates a mock provider with a small built-in corpus.
func NewMock() *Mock {
	return &Mock{
		canned: map[string][]Result{
			"ai agent": {{
				Title:   "What is an AI Agent?",
				URL:     "https://example.com/ai-agent",
				Snippet: "An AI agent is a software program that can perceive its environment and take actions to achieve specific goals.",
				Source:  "mock",
			}},
			"workflow": {{
				Title:   "Workflow Management Systems",
				URL:     "https://example.com/workflow",
				Snippet: "A workflow is a sequence of processes through which a piece of work passes from initiation to completion.",
				Source:  "mock",
			}},
		},
	}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Search(_ context.Context, query string, opts Options) ([]Result, error) {
	count := opts.Count
	if count == 0 {
		count = 5
	}

	lower := strings.ToLower(query)
	for key, results := range m.canned {
		if strings.Contains(lower, key) {
			if len(results) > count {
				results = results[:count]
			}
			return results, nil
		}
	}

	fallback := []Result{{
		Title:   "Search Results",
		URL:     "https://example.com/search",
		Snippet: "This is a mock search result for testing purposes.",
		Source:  "mock",
	}}
	if len(fallback) > count {
		fallback = fallback[:count]
	}
	return fallback, nil
}
