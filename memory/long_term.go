package memory

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Persistence loads and saves the long-term item set as a whole. The memory
// package never partially updates a backend; every durable write is a full
// snapshot of the current items.
type Persistence interface {
	Load(ctx context.Context) (map[string]*Item, error)
	Save(ctx context.Context, items map[string]*Item) error
}

// LongTerm is the durable knowledge store. Items are written through to the
// configured Persistence on every Add; persistence failures are logged and
// swallowed, the in-memory item stays retrievable either way.
type LongTerm struct {
	mu    sync.Mutex
	store Persistence
	items map[string]*Item
}

// NewLongTerm creates a long-term store backed by p, loading any previously
// persisted items. A nil p yields a memory-only store. Load failure starts
// the store empty: absence of prior state is not an error.
func NewLongTerm(ctx context.Context, p Persistence) *LongTerm {
	lt := &LongTerm{
		store: p,
		items: make(map[string]*Item),
	}
	if p == nil {
		return lt
	}
	loaded, err := p.Load(ctx)
	if err != nil {
		log.Printf("[MEMORY] long-term load failed, starting empty: %v", err)
		return lt
	}
	if loaded != nil {
		lt.items = loaded
	}
	log.Printf("[MEMORY] loaded %d items into long-term store", len(lt.items))
	return lt
}

// Add stores content and returns its id. Identical content maps to the same
// id and replaces the existing entry. The new state is written through to
// persistence before Add returns.
func (l *LongTerm) Add(ctx context.Context, content string, metadata map[string]any) string {
	id := ItemID(content)
	now := time.Now().UTC()

	l.mu.Lock()
	l.items[id] = &Item{
		ID:           id,
		Content:      content,
		Metadata:     metadata,
		CreatedAt:    now,
		LastAccessed: now,
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.persist(ctx, snapshot)
	log.Printf("[MEMORY] added %s to long-term store", id)
	return id
}

// Search returns items whose content contains query (case-insensitive),
// least-accessed first and oldest first on ties. Matching is a read that
// bumps access stats, so the updated stats are persisted afterwards.
func (l *LongTerm) Search(ctx context.Context, query string, limit int) []Item {
	q := strings.ToLower(query)
	now := time.Now().UTC()

	l.mu.Lock()
	var results []Item
	for _, it := range l.items {
		if strings.Contains(strings.ToLower(it.Content), q) {
			it.touch(now)
			results = append(results, it.clone())
		}
	}
	var snapshot map[string]*Item
	if len(results) > 0 {
		snapshot = l.snapshotLocked()
	}
	l.mu.Unlock()

	if snapshot != nil {
		l.persist(ctx, snapshot)
	}

	rankMatches(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Get returns the item with the given id, bumping its access stats.
func (l *LongTerm) Get(ctx context.Context, id string) (Item, bool) {
	l.mu.Lock()
	it, ok := l.items[id]
	if !ok {
		l.mu.Unlock()
		return Item{}, false
	}
	it.touch(time.Now().UTC())
	out := it.clone()
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.persist(ctx, snapshot)
	return out, true
}

// Len reports the number of items currently held.
func (l *LongTerm) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *LongTerm) snapshotLocked() map[string]*Item {
	snapshot := make(map[string]*Item, len(l.items))
	for id, it := range l.items {
		copied := it.clone()
		snapshot[id] = &copied
	}
	return snapshot
}

func (l *LongTerm) persist(ctx context.Context, snapshot map[string]*Item) {
	if l.store == nil {
		return
	}
	if err := l.store.Save(ctx, snapshot); err != nil {
		log.Printf("[MEMORY] long-term save failed: %v", err)
	}
}
