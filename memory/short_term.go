package memory

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultMaxItems caps the short-term buffer before LRU-access eviction.
	DefaultMaxItems = 100

	// DefaultTTL is how long an item survives regardless of capacity.
	DefaultTTL = 60 * time.Minute
)

// ShortTerm is the bounded per-process buffer for current session context.
//
// Items live in a content-addressed map shared by all sessions; each session
// additionally keeps an ordered list of the item ids added under it. Every
// Add triggers cleanup: TTL-expired items go unconditionally, then the
// least-recently-accessed items go until the buffer fits maxItems again.
type ShortTerm struct {
	mu       sync.Mutex
	maxItems int
	ttl      time.Duration
	items    map[string]*Item
	sessions map[string][]string
}

// NewShortTerm creates a short-term store. Zero values select the defaults.
func NewShortTerm(maxItems int, ttl time.Duration) *ShortTerm {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ShortTerm{
		maxItems: maxItems,
		ttl:      ttl,
		items:    make(map[string]*Item),
		sessions: make(map[string][]string),
	}
}

// Add stores content under the session and returns the item id. Identical
// content re-added maps to the existing id; the session index still records
// the addition so session context reflects append order.
func (s *ShortTerm) Add(sessionID, content string, metadata map[string]any) string {
	id := ItemID(content)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-adding identical content replaces the entry, refreshing its
	// timestamp so the TTL clock restarts.
	s.items[id] = &Item{
		ID:           id,
		Content:      content,
		Metadata:     metadata,
		CreatedAt:    now,
		LastAccessed: now,
	}
	s.sessions[sessionID] = append(s.sessions[sessionID], id)

	s.cleanupLocked(now)

	log.Printf("[MEMORY] added %s to short-term for session %s", id, sessionID)
	return id
}

// Search returns items whose content contains query (case-insensitive).
// With a session id the candidate set is that session's items; otherwise the
// whole buffer. Matches rank least-accessed first, oldest first on ties, and
// every match's access stats are bumped before ranking.
func (s *ShortTerm) Search(query, sessionID string, limit int) []Item {
	q := strings.ToLower(query)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*Item
	if sessionID != "" {
		seen := make(map[string]bool)
		for _, id := range s.sessions[sessionID] {
			if it, ok := s.items[id]; ok && !seen[id] {
				seen[id] = true
				candidates = append(candidates, it)
			}
		}
	} else {
		for _, it := range s.items {
			candidates = append(candidates, it)
		}
	}

	var results []Item
	for _, it := range candidates {
		if strings.Contains(strings.ToLower(it.Content), q) {
			it.touch(now)
			results = append(results, it.clone())
		}
	}

	rankMatches(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SessionContext returns the session's items in append order. Each returned
// item counts as a read: access stats are bumped.
func (s *ShortTerm) SessionContext(sessionID string) []Item {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.sessions[sessionID]
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := s.items[id]; ok {
			it.touch(now)
			items = append(items, it.clone())
		}
	}
	return items
}

// Cleanup evicts expired items and enforces the capacity limit.
func (s *ShortTerm) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked(time.Now().UTC())
}

// Len reports the number of distinct items currently held.
func (s *ShortTerm) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *ShortTerm) cleanupLocked(now time.Time) {
	// TTL eviction is unconditional.
	for id, it := range s.items {
		if now.Sub(it.CreatedAt) > s.ttl {
			s.evictLocked(id)
		}
	}

	if len(s.items) <= s.maxItems {
		return
	}

	// Over capacity: drop least-recently-accessed items down to the limit.
	byAccess := make([]*Item, 0, len(s.items))
	for _, it := range s.items {
		byAccess = append(byAccess, it)
	}
	sort.Slice(byAccess, func(i, j int) bool {
		return byAccess[i].LastAccessed.Before(byAccess[j].LastAccessed)
	})

	excess := len(s.items) - s.maxItems
	for _, it := range byAccess[:excess] {
		s.evictLocked(it.ID)
	}
}

// evictLocked removes the item from the map and from every session index
// that references it.
func (s *ShortTerm) evictLocked(id string) {
	delete(s.items, id)
	for sessionID, ids := range s.sessions {
		kept := ids[:0]
		for _, other := range ids {
			if other != id {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(s.sessions, sessionID)
		} else {
			s.sessions[sessionID] = kept
		}
	}
}
