package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/helmsman-ai/helmsman/memory"
)

// recordingStore is an in-memory Persistence that remembers the last
// snapshot it was asked to save.
type recordingStore struct {
	mu      sync.Mutex
	loaded  map[string]*memory.Item
	saved   map[string]*memory.Item
	saves   int
	loadErr error
	saveErr error
}

func (r *recordingStore) Load(context.Context) (map[string]*memory.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.loaded, nil
}

func (r *recordingStore) Save(_ context.Context, items map[string]*memory.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = items
	r.saves++
	return nil
}

func TestItemID_Deterministic(t *testing.T) {
	a := memory.ItemID("the same content")
	b := memory.ItemID("the same content")
	if a != b {
		t.Fatalf("same content produced different ids: %s vs %s", a, b)
	}
	if len(a) != 12 {
		t.Fatalf("expected 12-char id, got %q (%d chars)", a, len(a))
	}
	if a == memory.ItemID("different content") {
		t.Fatal("different content produced the same id")
	}
}

func TestShortTerm_AddAndSearch(t *testing.T) {
	st := memory.NewShortTerm(0, 0)

	id := st.Add("s1", "the weather in Paris is sunny", nil)
	st.Add("s1", "the weather in Berlin is cloudy", nil)
	st.Add("s2", "unrelated note about databases", nil)

	results := st.Search("weather", "s1", 10)
	if len(results) != 2 {
		t.Fatalf("expected 2 matches in session s1, got %d", len(results))
	}
	for _, it := range results {
		if it.AccessCount != 1 {
			t.Errorf("expected access count 1 after one search, got %d for %s", it.AccessCount, it.ID)
		}
	}

	// Session scoping keeps s2's item out.
	if res := st.Search("databases", "s1", 10); len(res) != 0 {
		t.Fatalf("s1 search leaked s2 items: %v", res)
	}

	// Re-adding identical content maps to the same id.
	if again := st.Add("s1", "the weather in Paris is sunny", nil); again != id {
		t.Fatalf("duplicate content got a new id: %s vs %s", again, id)
	}
}

func TestShortTerm_RankingPrefersLeastAccessed(t *testing.T) {
	st := memory.NewShortTerm(0, 0)
	st.Add("s1", "note alpha", nil)
	time.Sleep(2 * time.Millisecond)
	st.Add("s1", "note beta", nil)

	// Bump alpha twice so beta is the less-accessed match.
	st.Search("alpha", "s1", 10)
	st.Search("alpha", "s1", 10)

	results := st.Search("note", "s1", 10)
	if len(results) != 2 {
		t.Fatalf("expected both notes, got %d", len(results))
	}
	if results[0].Content != "note beta" {
		t.Fatalf("expected least-accessed note first, got %q", results[0].Content)
	}
}

func TestShortTerm_CleanupEnforcesCapacityAndTTL(t *testing.T) {
	st := memory.NewShortTerm(3, 50*time.Millisecond)

	for _, c := range []string{"one", "two", "three", "four", "five"} {
		st.Add("s1", "item "+c, nil)
	}
	if got := st.Len(); got > 3 {
		t.Fatalf("capacity not enforced: %d items held", got)
	}

	time.Sleep(60 * time.Millisecond)
	st.Cleanup()
	if got := st.Len(); got != 0 {
		t.Fatalf("expected all items expired, %d remain", got)
	}
	if ctxItems := st.SessionContext("s1"); len(ctxItems) != 0 {
		t.Fatalf("session context still references evicted items: %v", ctxItems)
	}
}

func TestLongTerm_WriteThroughAndReload(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}

	lt := memory.NewLongTerm(ctx, store)
	id := lt.Add(ctx, "persistent fact about gophers", map[string]any{"source": "test"})

	if store.saves == 0 {
		t.Fatal("Add did not write through to persistence")
	}
	if _, ok := store.saved[id]; !ok {
		t.Fatalf("saved snapshot missing item %s", id)
	}

	// A new store constructed over the saved snapshot sees the item.
	reloaded := memory.NewLongTerm(ctx, &recordingStore{loaded: store.saved})
	if got, ok := reloaded.Get(ctx, id); !ok || got.Content != "persistent fact about gophers" {
		t.Fatalf("reloaded store missing item: ok=%v got=%+v", ok, got)
	}
}

func TestLongTerm_SurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{saveErr: context.DeadlineExceeded}

	lt := memory.NewLongTerm(ctx, store)
	id := lt.Add(ctx, "still retrievable", nil)

	if got, ok := lt.Get(ctx, id); !ok || got.Content != "still retrievable" {
		t.Fatalf("item lost after save failure: ok=%v got=%+v", ok, got)
	}
}

func TestLongTerm_DuplicateContentHeldOnce(t *testing.T) {
	ctx := context.Background()
	lt := memory.NewLongTerm(ctx, nil)

	a := lt.Add(ctx, "same fact", nil)
	b := lt.Add(ctx, "same fact", nil)
	if a != b {
		t.Fatalf("duplicate content got distinct ids: %s vs %s", a, b)
	}
	if lt.Len() != 1 {
		t.Fatalf("expected one stored entry, got %d", lt.Len())
	}
}

func TestHybrid_SearchMergesAndDedupes(t *testing.T) {
	ctx := context.Background()
	st := memory.NewShortTerm(0, 0)
	lt := memory.NewLongTerm(ctx, nil)
	h := memory.NewHybrid(st, lt)

	h.AddToSession("s1", "shared fact about tides", nil)
	h.AddToKnowledge(ctx, "shared fact about tides", nil)
	h.AddToKnowledge(ctx, "another fact about tides", nil)

	results := h.Search(ctx, "tides", "s1", 10)

	seen := make(map[string]bool)
	for _, it := range results {
		if seen[it.ID] {
			t.Fatalf("duplicate id %s in merged results", it.ID)
		}
		seen[it.ID] = true
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 distinct items, got %d", len(results))
	}
	if results[0].Content != "shared fact about tides" {
		t.Fatalf("expected short-term match ranked first, got %q", results[0].Content)
	}
}

func TestHybrid_OddLimitUnderfills(t *testing.T) {
	ctx := context.Background()
	st := memory.NewShortTerm(0, 0)
	lt := memory.NewLongTerm(ctx, nil)
	h := memory.NewHybrid(st, lt)

	for _, c := range []string{"fact a", "fact b", "fact c"} {
		h.AddToSession("s1", c, nil)
	}
	for _, c := range []string{"fact d", "fact e", "fact f"} {
		h.AddToKnowledge(ctx, c, nil)
	}

	// limit 5 caps each store at 2, so at most 4 come back.
	if results := h.Search(ctx, "fact", "s1", 5); len(results) != 4 {
		t.Fatalf("expected 4 results with limit 5, got %d", len(results))
	}
}

func TestHybrid_LimitOneReturnsNothing(t *testing.T) {
	ctx := context.Background()
	st := memory.NewShortTerm(0, 0)
	lt := memory.NewLongTerm(ctx, nil)
	h := memory.NewHybrid(st, lt)

	h.AddToSession("s1", "fact one about tides", nil)
	h.AddToKnowledge(ctx, "fact two about tides", nil)

	// limit 1 caps each store at 1/2 = 0.
	if results := h.Search(ctx, "tides", "s1", 1); len(results) != 0 {
		t.Fatalf("expected no results with limit 1, got %d: %v", len(results), results)
	}
}
