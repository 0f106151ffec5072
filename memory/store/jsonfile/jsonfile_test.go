package jsonfile_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/helmsman-ai/helmsman/memory"
	"github.com/helmsman-ai/helmsman/memory/store/jsonfile"
)

func TestStore_MissingFileLoadsEmpty(t *testing.T) {
	s := jsonfile.New(filepath.Join(t.TempDir(), "nope.json"))
	items, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty set, got %d items", len(items))
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "items.json")
	s := jsonfile.New(path)

	now := time.Now().UTC().Truncate(time.Second)
	in := map[string]*memory.Item{
		"abc123def456": {
			ID:           "abc123def456",
			Content:      "a durable fact",
			Metadata:     map[string]any{"origin": "test"},
			CreatedAt:    now,
			AccessCount:  3,
			LastAccessed: now,
		},
	}

	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := out["abc123def456"]
	if !ok {
		t.Fatal("saved item missing after load")
	}
	if got.Content != "a durable fact" || got.AccessCount != 3 {
		t.Fatalf("round trip mangled item: %+v", got)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("timestamp drift: saved %v, loaded %v", now, got.CreatedAt)
	}
}
