// Package sqlite is the embedded-relational Store implementation: a
// database/sql handle, one migration per schema change, and narrow
// per-entity query files (issues.go, projects.go, ...). The driver is
// modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/oculairmedia/huly-vibe-sync/internal/store"
)

// Store is a database/sql-backed implementation of store.Store. Writes for
// a given issue identifier are serialized by a per-identifier mutex map
// layered on top of SQLite's own single-writer semantics.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	keyLock map[string]*sync.Mutex
}

// Open creates/opens the sqlite database at path and applies all pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	// SQLite only supports one writer; cap the pool so concurrent
	// activities queue rather than hit SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, keyLock: make(map[string]*sync.Mutex)}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite store: %w", err)
	}
	return s, nil
}

// lockFor returns (creating if needed) the mutex guarding identifier.
func (s *Store) lockFor(identifier string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.keyLock[identifier]
	if !ok {
		l = &sync.Mutex{}
		s.keyLock[identifier] = l
	}
	return l
}

func (s *Store) Close() error { return s.db.Close() }

// WithTx runs fn inside a single *sql.Tx, exposing it through the TxStore
// adapter so every call inside fn shares one transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.TxStore) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &txAdapter{tx: sqlTx}
	if err := fn(ctx, txStore); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
