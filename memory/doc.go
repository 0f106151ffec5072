// Package memory implements the hybrid retrieval memory: a session-scoped
// short-term store, a persisted long-term store, and the merge/dedup/rank
// logic that combines them.
//
// Items are content-addressed: identical content always hashes to the same
// id and is treated as one item. Reading an item mutates it: every search
// hit and by-id lookup bumps its access counter and refreshes its
// last-access timestamp. Both stores therefore guard their maps with a
// full mutex.
//
// Architecture:
//   - ShortTerm: bounded in-process buffer with TTL and capacity eviction
//   - LongTerm: in-memory index behind an injected Persistence backend
//   - Hybrid: issues both searches, dedups by id, re-ranks session-first
//
// Persistence backends live in subpackages:
//   - store/jsonfile: single JSON file, the default
//   - store/sqlitestore: SQLite-backed, for larger knowledge bases
package memory
