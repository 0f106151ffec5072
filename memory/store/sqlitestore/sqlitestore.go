// Package sqlitestore persists long-term memory items in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/helmsman-ai/helmsman/memory"
)

const schema = `
CREATE TABLE IF NOT EXISTS memory_items (
	id            TEXT PRIMARY KEY,
	content       TEXT NOT NULL,
	metadata      TEXT NOT NULL DEFAULT '{}',
	embedding     TEXT,
	created_at    TEXT NOT NULL,
	access_count  INTEGER NOT NULL DEFAULT 0,
	last_accessed TEXT NOT NULL
);
`

// Store keeps the item set in a single memory_items table. Save replaces
// the table contents wholesale inside one transaction.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Load reads every persisted item.
func (s *Store) Load(ctx context.Context) (map[string]*memory.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding, created_at, access_count, last_accessed
		FROM memory_items`)
	if err != nil {
		return nil, fmt.Errorf("query memory_items: %w", err)
	}
	defer rows.Close()

	items := make(map[string]*memory.Item)
	for rows.Next() {
		var (
			it                  memory.Item
			metaJSON            string
			embJSON             sql.NullString
			createdAt, lastUsed string
		)
		if err := rows.Scan(&it.ID, &it.Content, &metaJSON, &embJSON, &createdAt, &it.AccessCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan memory item: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &it.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", it.ID, err)
		}
		if embJSON.Valid && embJSON.String != "" {
			if err := json.Unmarshal([]byte(embJSON.String), &it.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding for %s: %w", it.ID, err)
			}
		}
		if it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", it.ID, err)
		}
		if it.LastAccessed, err = time.Parse(time.RFC3339Nano, lastUsed); err != nil {
			return nil, fmt.Errorf("parse last_accessed for %s: %w", it.ID, err)
		}
		item := it
		items[item.ID] = &item
	}
	return items, rows.Err()
}

// Save replaces the persisted set with the given snapshot.
func (s *Store) Save(ctx context.Context, items map[string]*memory.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_items`); err != nil {
		return fmt.Errorf("clear memory_items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memory_items (id, content, metadata, embedding, created_at, access_count, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		metaJSON, err := json.Marshal(it.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", it.ID, err)
		}
		var embJSON any
		if len(it.Embedding) > 0 {
			b, err := json.Marshal(it.Embedding)
			if err != nil {
				return fmt.Errorf("encode embedding for %s: %w", it.ID, err)
			}
			embJSON = string(b)
		}
		_, err = stmt.ExecContext(ctx, it.ID, it.Content, string(metaJSON), embJSON,
			it.CreatedAt.Format(time.RFC3339Nano), it.AccessCount,
			it.LastAccessed.Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}
