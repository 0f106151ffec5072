package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"
)

// Item is a content-addressed memory unit with access statistics.
//
// The ID is derived from Content, so byte-identical content always maps to
// the same item. Embedding is carried for persistence compatibility but the
// core retrieval path is lexical and never populates it.
type Item struct {
	ID           string         `json:"id"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata"`
	Embedding    []float64      `json:"embedding,omitempty"`
	CreatedAt    time.Time      `json:"timestamp"`
	AccessCount  int            `json:"access_count"`
	LastAccessed time.Time      `json:"last_accessed"`
}

// ItemID returns the deterministic id for content: the first 12 hex
// characters of its SHA-256 digest.
func ItemID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:12]
}

// touch records an access.
func (it *Item) touch(now time.Time) {
	it.AccessCount++
	it.LastAccessed = now
}

// clone returns a value copy safe to hand out after the store's lock is
// released. Metadata is shallow-copied; callers treat it as read-only.
func (it *Item) clone() Item {
	cp := *it
	if it.Metadata != nil {
		md := make(map[string]any, len(it.Metadata))
		for k, v := range it.Metadata {
			md[k] = v
		}
		cp.Metadata = md
	}
	return cp
}

// rankMatches orders search matches the way both stores rank them:
// least-accessed first, then oldest first for equal access counts.
// The sort is stable so equal keys keep match order.
func rankMatches(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].AccessCount != items[j].AccessCount {
			return items[i].AccessCount < items[j].AccessCount
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
