// Package llm abstracts chat-completion providers behind a single Generate
// interface with ordered fallback between providers.
package llm

import (
	"context"
	"strings"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything a provider needs for one completion.
type Request struct {
	Messages    []Message
	System      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response is a completed generation.
type Response struct {
	Content    string `json:"content"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// Client generates completions. Implementations must be safe for concurrent
// use.
type Client interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// EstimateTokens approximates token usage from word count when a provider
// does not report real usage.
func EstimateTokens(content string) int {
	return int(float64(len(strings.Fields(content))) * 1.3)
}
