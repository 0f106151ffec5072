// Package jsonfile persists long-term memory items as a single JSON file.
// It suits single-process deployments where inspectability matters more
// than write throughput.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helmsman-ai/helmsman/memory"
)

// Store reads and writes the full item set at a fixed path.
type Store struct {
	path string
}

// New creates a store persisting to path. The file is created on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the item set. A missing file is not an error; it yields an
// empty map.
func (s *Store) Load(_ context.Context) (map[string]*memory.Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*memory.Item), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	items := make(map[string]*memory.Item)
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return items, nil
}

// Save writes the full item set, replacing the file atomically via a
// temp-file rename so a crash mid-write never corrupts prior state.
func (s *Store) Save(_ context.Context, items map[string]*memory.Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
