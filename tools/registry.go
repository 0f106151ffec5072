// Package tools hosts the agent's tool registry. Every execution passes
// through guardrails: tenant access checks on the way in, content filtering
// on queries and results.
package tools

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/helmsman-ai/helmsman/guardrails"
	"github.com/helmsman-ai/helmsman/rag"
	"github.com/helmsman-ai/helmsman/tools/websearch"
)

// Info describes a tool to clients and to the planning phase.
type Info struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	InputSchema map[string]any `json:"input_schema"`
}

// Handler executes a tool call. The returned map is the tool's result
// payload; a non-nil error marks the call failed.
type Handler func(ctx context.Context, params map[string]any) (map[string]any, error)

// Tool pairs metadata with its handler.
type Tool struct {
	Info    Info
	Handler Handler
}

// Registry holds the registered tools and runs executions through
// guardrails.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	guards *guardrails.Guardrails
}

// NewRegistry creates an empty registry guarded by g.
func NewRegistry(g *guardrails.Guardrails) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		guards: g,
	}
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	r.tools[t.Info.Name] = t
	r.mu.Unlock()
	log.Printf("[TOOLS] registered tool %s", t.Info.Name)
}

// Execute runs the named tool. Failures never surface as errors; they come
// back as a payload with success=false so callers get a uniform shape.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any, tenantID string) map[string]any {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return map[string]any{
			"success":         false,
			"error":           fmt.Sprintf("Tool %s not found", name),
			"available_tools": r.names(),
		}
	}

	if !r.guards.CheckToolAccess(name, tenantID) {
		return map[string]any{
			"success":   false,
			"error":     fmt.Sprintf("Access denied for tool %s", name),
			"tenant_id": tenantID,
		}
	}

	result, err := tool.Handler(ctx, params)
	if err != nil {
		log.Printf("[TOOLS] %s failed: %v", name, err)
		return map[string]any{
			"success":   false,
			"error":     err.Error(),
			"tool_name": name,
		}
	}
	return result
}

// Available lists the tools the tenant may use.
func (r *Registry) Available(tenantID string) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []Info
	for name, tool := range r.tools {
		if r.guards.CheckToolAccess(name, tenantID) {
			infos = append(infos, tool.Info)
		}
	}
	return infos
}

// Info returns the named tool's metadata.
func (r *Registry) Info(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool.Info, ok
}

func (r *Registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// RegisterWebSearch wires a web_search tool over the given provider. The
// query passes through input guardrails before the search and every snippet
// passes through output guardrails after it.
func (r *Registry) RegisterWebSearch(provider websearch.Provider) {
	r.Register(Tool{
		Info: Info{
			Name:        "web_search",
			Description: "Search the web for information",
			Category:    "information",
			InputSchema: ObjectSchema(map[string]interface{}{
				"query":       StringProperty("The search query string"),
				"max_results": IntegerProperty("Maximum number of results to return (default: 5)"),
			}, "query"),
		},
		Handler: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			query, _ := params["query"].(string)
			if query == "" {
				return nil, fmt.Errorf("query parameter is required for web search")
			}
			maxResults := intParam(params, "max_results", 5)

			filtered := r.guards.ProcessInput(query, "")
			if filtered.Result == guardrails.Blocked {
				return map[string]any{
					"success":    false,
					"error":      "Query blocked by content filter",
					"violations": filtered.Violations,
				}, nil
			}

			results, err := provider.Search(ctx, filtered.Content, websearch.Options{Count: maxResults})
			if err != nil {
				return nil, fmt.Errorf("web search failed: %w", err)
			}

			cleaned := make([]map[string]any, 0, len(results))
			for _, res := range results {
				snippet := r.guards.ProcessOutput(res.Snippet, "")
				cleaned = append(cleaned, map[string]any{
					"title":   res.Title,
					"url":     res.URL,
					"snippet": snippet.Content,
					"source":  res.Source,
				})
			}

			return map[string]any{
				"success":       true,
				"results":       cleaned,
				"query":         filtered.Content,
				"total_results": len(cleaned),
			}, nil
		},
	})
}

// RegisterDocumentSearch wires a document_search tool over the retrieval
// system.
func (r *Registry) RegisterDocumentSearch(retriever *rag.RAG) {
	r.Register(Tool{
		Info: Info{
			Name:        "document_search",
			Description: "Search through uploaded documents",
			Category:    "information",
			InputSchema: ObjectSchema(map[string]interface{}{
				"query": StringProperty("The document search query"),
				"limit": IntegerProperty("Maximum number of passages to return (default: 5)"),
			}, "query"),
		},
		Handler: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			query, _ := params["query"].(string)
			if query == "" {
				return nil, fmt.Errorf("query parameter is required for document search")
			}
			limit := intParam(params, "limit", 5)

			results := retriever.Retrieve(ctx, query, "", limit)
			passages := make([]map[string]any, 0, len(results))
			for _, res := range results {
				passages = append(passages, map[string]any{
					"content":         res.Content,
					"source":          res.Source,
					"relevance_score": res.Score,
					"metadata":        res.Metadata,
				})
			}

			return map[string]any{
				"success":       true,
				"results":       passages,
				"query":         query,
				"total_results": len(passages),
			}, nil
		},
	})
}

// intParam reads an integer parameter that may arrive as float64 after a
// JSON round trip.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}
