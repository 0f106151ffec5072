// Package websearch provides a pluggable web search interface for the
// agent's tool layer. Providers implement the [Provider] interface; the
// [Cached] wrapper adds a TTL result cache in front of any provider.
package websearch

import "context"

// Result is a single search result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source"`
}

// Options are optional parameters for a search query.
type Options struct {
	// Count is the maximum number of results to return. Providers may
	// return fewer. Zero means provider default.
	Count int `json:"count,omitempty"`
}

// Provider is the interface that search backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "searxng", "mock").
	Name() string

	// Search executes a query and returns results.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}
