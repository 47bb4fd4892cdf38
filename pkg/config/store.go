// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// Store holds named configuration sections. Reads go through an immutable
// snapshot map swapped atomically on every update; writers serialize on one
// mutex.
type Store struct {
	db *sql.DB

	writeMu  sync.Mutex
	snapshot atomic.Pointer[map[string]json.RawMessage]
}

// Open opens (creating if necessary) the config database at path and loads
// the snapshot.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sections (
		name TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	s := &Store{db: db}
	if err := s.reload(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) reload() error {
	rows, err := s.db.Query(`SELECT name, data FROM sections`)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	defer rows.Close()

	snap := make(map[string]json.RawMessage)
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return fmt.Errorf("%w: %w", ErrOpenFailed, err)
		}
		snap[name] = json.RawMessage(data)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	s.snapshot.Store(&snap)
	return nil
}

// Raw returns the stored JSON for a section, if present.
func (s *Store) Raw(name string) (json.RawMessage, bool) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, false
	}
	raw, ok := (*snap)[name]
	return raw, ok
}

// put persists one section and swaps in a new snapshot.
func (s *Store) put(name string, raw json.RawMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.Exec(
		`INSERT INTO sections (name, data) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
		name, string(raw),
	); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersist, name, err)
	}

	old := s.snapshot.Load()
	snap := make(map[string]json.RawMessage, len(*old)+1)
	for k, v := range *old {
		snap[k] = v
	}
	snap[name] = raw
	s.snapshot.Store(&snap)
	return nil
}

// Get decodes the named section into T, falling back to def when unset.
func Get[T any](s *Store, name string, def T) (T, error) {
	raw, ok := s.Raw(name)
	if !ok {
		return def, nil
	}

	out := def
	if err := json.Unmarshal(raw, &out); err != nil {
		return def, fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	return out, nil
}

// Patch applies fn to the current value of the section (or def when unset)
// and persists the result. The returned value is what was stored.
func Patch[T any](s *Store, name string, def T, fn func(*T)) (T, error) {
	cur, err := Get(s, name, def)
	if err != nil {
		return def, err
	}

	fn(&cur)

	raw, err := json.Marshal(cur)
	if err != nil {
		return def, fmt.Errorf("%w: %s: %w", ErrPersist, name, err)
	}
	if err := s.put(name, raw); err != nil {
		return def, err
	}
	return cur, nil
}
