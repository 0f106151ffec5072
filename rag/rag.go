// Package rag provides lexical retrieval-augmented generation on top of the
// hybrid memory system. Documents are chunked, keyword-tagged, and stored in
// long-term memory; retrieval runs a hybrid memory search and re-scores the
// hits against the query.
package rag

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/helmsman-ai/helmsman/memory"
)

// Document is an ingested source text together with its derived chunks.
type Document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Chunks   []string       `json:"chunks,omitempty"`
}

// Result is a scored retrieval hit.
type Result struct {
	Content  string         `json:"content"`
	Source   string         `json:"source"`
	Score    float64        `json:"relevance_score"`
	Metadata map[string]any `json:"metadata"`
}

// RAG owns the document registry and drives ingestion and retrieval through
// the memory system.
type RAG struct {
	mu        sync.RWMutex
	mem       *memory.Hybrid
	processor *Processor
	documents map[string]*Document
}

// New creates a RAG system over mem with default chunking parameters.
func New(mem *memory.Hybrid) *RAG {
	return &RAG{
		mem:       mem,
		processor: NewProcessor(0, 0),
		documents: make(map[string]*Document),
	}
}

// IngestDocument chunks the content, stores each chunk in long-term memory
// tagged with document and keyword metadata, and returns the document id.
func (r *RAG) IngestDocument(ctx context.Context, title, content string, metadata map[string]any) string {
	docID := "doc_" + uuid.NewString()
	chunks := r.processor.Chunk(content)

	doc := &Document{
		ID:       docID,
		Title:    title,
		Content:  content,
		Metadata: metadata,
		Chunks:   chunks,
	}

	r.mu.Lock()
	r.documents[docID] = doc
	r.mu.Unlock()

	for i, chunk := range chunks {
		chunkMeta := map[string]any{
			"document_id":    docID,
			"document_title": title,
			"chunk_index":    i,
			"total_chunks":   len(chunks),
			"keywords":       r.processor.ExtractKeywords(chunk),
		}
		for k, v := range metadata {
			chunkMeta[k] = v
		}
		r.mem.AddToKnowledge(ctx, chunk, chunkMeta)
	}

	log.Printf("[RAG] ingested document %q (%s) with %d chunks", title, docID, len(chunks))
	return docID
}

// IngestText stores a raw text snippet in long-term memory and returns the
// memory item id.
func (r *RAG) IngestText(ctx context.Context, text, source string, metadata map[string]any) string {
	if source == "" {
		source = "user_input"
	}
	textMeta := map[string]any{
		"source":   source,
		"type":     "text_snippet",
		"keywords": r.processor.ExtractKeywords(text),
	}
	for k, v := range metadata {
		textMeta[k] = v
	}
	return r.mem.AddToKnowledge(ctx, text, textMeta)
}

// Retrieve runs a hybrid memory search for the query and re-scores the hits,
// highest score first.
func (r *RAG) Retrieve(ctx context.Context, query, sessionID string, limit int) []Result {
	if limit <= 0 {
		limit = 5
	}
	items := r.mem.Search(ctx, query, sessionID, limit)

	results := make([]Result, 0, len(items))
	for _, item := range items {
		source := "unknown"
		if s, ok := item.Metadata["source"].(string); ok {
			source = s
		}
		results = append(results, Result{
			Content:  item.Content,
			Source:   source,
			Score:    scoreRelevance(query, item),
			Metadata: item.Metadata,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// RetrieveWithContext pairs retrieval hits with the session's short-term
// context.
func (r *RAG) RetrieveWithContext(ctx context.Context, query, sessionID string, limit int) ([]Result, []memory.Item) {
	results := r.Retrieve(ctx, query, sessionID, limit)
	return results, r.mem.SessionContext(sessionID)
}

// AddConversationTurn records a user message and the assistant's response in
// the session's short-term memory.
func (r *RAG) AddConversationTurn(sessionID, userMessage, assistantResponse string) {
	r.mem.AddToSession(sessionID, userMessage, map[string]any{
		"type": "user_message",
		"role": "user",
	})
	r.mem.AddToSession(sessionID, assistantResponse, map[string]any{
		"type": "assistant_response",
		"role": "assistant",
	})
}

// GetDocument returns the document with the given id.
func (r *RAG) GetDocument(docID string) (*Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[docID]
	return doc, ok
}

// ListDocuments returns every ingested document.
func (r *RAG) ListDocuments() []*Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]*Document, 0, len(r.documents))
	for _, doc := range r.documents {
		docs = append(docs, doc)
	}
	return docs
}

// SearchDocuments returns documents whose title or content contains the
// query, case-insensitive, up to limit.
func (r *RAG) SearchDocuments(query string, limit int) []*Document {
	if limit <= 0 {
		limit = 5
	}
	q := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*Document
	for _, doc := range r.documents {
		if strings.Contains(strings.ToLower(doc.Title), q) ||
			strings.Contains(strings.ToLower(doc.Content), q) {
			matches = append(matches, doc)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches
}

// scoreRelevance combines exact phrase, word overlap, keyword overlap, and
// access frequency into a single relevance score.
func scoreRelevance(query string, item memory.Item) float64 {
	queryLower := strings.ToLower(query)
	contentLower := strings.ToLower(item.Content)

	var score float64

	if strings.Contains(contentLower, queryLower) {
		score += 1.0
	}

	queryWords := fieldSet(queryLower)
	contentWords := fieldSet(contentLower)
	if len(queryWords) > 0 {
		overlap := 0
		for w := range queryWords {
			if contentWords[w] {
				overlap++
			}
		}
		score += float64(overlap) / float64(len(queryWords)) * 0.5

		keywords := keywordSet(item.Metadata["keywords"])
		matches := 0
		for w := range queryWords {
			if keywords[w] {
				matches++
			}
		}
		score += float64(matches) / float64(len(queryWords)) * 0.3
	}

	bonus := float64(item.AccessCount) * 0.01
	if bonus > 0.1 {
		bonus = 0.1
	}
	return score + bonus
}

func fieldSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// keywordSet tolerates both the in-process []string shape and the []any
// shape that metadata takes after a JSON round trip.
func keywordSet(v any) map[string]bool {
	set := make(map[string]bool)
	switch kws := v.(type) {
	case []string:
		for _, w := range kws {
			set[w] = true
		}
	case []any:
		for _, w := range kws {
			if s, ok := w.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}
