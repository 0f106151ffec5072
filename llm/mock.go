package llm

import (
	"context"
	"sync"
)

// Mock is a scriptable in-memory Client for tests and keyless deployments.
// Responses are returned in order; once exhausted, the last one repeats.
type Mock struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []Request
}

// NewMock creates a mock that replays responses in order.
func NewMock(responses ...string) *Mock {
	return &Mock{responses: responses}
}

// Fail makes every subsequent Generate return err.
func (m *Mock) Fail(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *Mock) Name() string { return "mock" }

// Calls returns the requests this mock has served, in order.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *Mock) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, req)

	content := "mock response"
	if len(m.responses) > 0 {
		idx := len(m.calls) - 1
		if idx >= len(m.responses) {
			idx = len(m.responses) - 1
		}
		content = m.responses[idx]
	}

	return &Response{
		Content:    content,
		Provider:   m.Name(),
		Model:      "mock",
		TokensUsed: EstimateTokens(content),
	}, nil
}
