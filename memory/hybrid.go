package memory

import (
	"context"
	"sort"
	"time"
)

// Hybrid unifies the short-term session buffer and the long-term knowledge
// store behind a single search surface.
type Hybrid struct {
	short *ShortTerm
	long  *LongTerm
}

// NewHybrid wires the two stores together. Either may be shared with other
// components; Hybrid adds no locking of its own.
func NewHybrid(short *ShortTerm, long *LongTerm) *Hybrid {
	return &Hybrid{short: short, long: long}
}

// ShortTerm exposes the underlying session buffer.
func (h *Hybrid) ShortTerm() *ShortTerm { return h.short }

// LongTerm exposes the underlying knowledge store.
func (h *Hybrid) LongTerm() *LongTerm { return h.long }

// AddToSession records content in the short-term buffer under sessionID.
func (h *Hybrid) AddToSession(sessionID, content string, metadata map[string]any) string {
	return h.short.Add(sessionID, content, metadata)
}

// AddToKnowledge records content durably in the long-term store.
func (h *Hybrid) AddToKnowledge(ctx context.Context, content string, metadata map[string]any) string {
	return h.long.Add(ctx, content, metadata)
}

// SessionContext returns the session's short-term items in append order.
func (h *Hybrid) SessionContext(sessionID string) []Item {
	return h.short.SessionContext(sessionID)
}

// Search queries both stores and merges the results. Each store contributes
// at most limit/2 items (integer division, so an odd limit can come back
// under-filled). Short-term results precede long-term ones, duplicates keep
// their first occurrence, and the merged set is re-ranked: short-term before
// long-term, then most-accessed first, then newest first.
func (h *Hybrid) Search(ctx context.Context, query, sessionID string, limit int) []Item {
	if limit <= 0 {
		limit = 10
	}
	per := limit / 2
	if per == 0 {
		// A limit of 1 caps both stores at zero.
		return nil
	}

	shortRes := h.short.Search(query, sessionID, per)
	longRes := h.long.Search(ctx, query, per)

	shortIDs := make(map[string]bool, len(shortRes))
	for _, it := range shortRes {
		shortIDs[it.ID] = true
	}

	merged := make([]Item, 0, len(shortRes)+len(longRes))
	seen := make(map[string]bool, len(shortRes)+len(longRes))
	for _, it := range append(shortRes, longRes...) {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		merged = append(merged, it)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		si, sj := shortIDs[merged[i].ID], shortIDs[merged[j].ID]
		if si != sj {
			return si
		}
		if merged[i].AccessCount != merged[j].AccessCount {
			return merged[i].AccessCount > merged[j].AccessCount
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Cleanup runs short-term eviction. Long-term items never expire.
func (h *Hybrid) Cleanup() { h.short.Cleanup() }

// Stats summarizes the state of both stores.
func (h *Hybrid) Stats() Stats {
	return Stats{
		ShortTermItems: h.short.Len(),
		LongTermItems:  h.long.Len(),
		CollectedAt:    time.Now().UTC(),
	}
}

// Stats is a point-in-time snapshot of store sizes.
type Stats struct {
	ShortTermItems int       `json:"short_term_items"`
	LongTermItems  int       `json:"long_term_items"`
	CollectedAt    time.Time `json:"collected_at"`
}
