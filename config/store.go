package config

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const documentKey = "config"

// Store holds the active configuration document and swaps it atomically on save.
// Readers get an immutable snapshot; they must not mutate it. The document is
// persisted in the kv table so it survives restarts.
type Store struct {
	db *sql.DB

	mu        sync.RWMutex
	doc       *Document
	listeners []func(*Document)
}

// NewStore loads the persisted document from the kv table, falling back to
// DefaultDocument when none is stored. A nil db keeps the store memory-only
// (used in tests).
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db, doc: DefaultDocument()}
	if db == nil {
		return s, nil
	}
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, documentKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load config document: %w", err)
	}
	doc := DefaultDocument()
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		// A corrupt stored document must not brick the service; start from defaults.
		slog.Error("stored config document is invalid; using defaults", slog.Any("err", err))
		return s, nil
	}
	doc.Normalize()
	s.doc = doc
	return s, nil
}

// Get returns the current document snapshot. Callers must treat it as read-only.
func (s *Store) Get() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Save validates, persists, and swaps in a new document, then notifies listeners.
// On any error the prior document stays active.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	doc.Normalize()
	if s.db != nil {
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal config document: %w", err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW()) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
			documentKey, string(raw)); err != nil {
			return fmt.Errorf("persist config document: %w", err)
		}
	}
	s.mu.Lock()
	s.doc = doc
	listeners := make([]func(*Document), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(doc)
	}
	return nil
}

// OnChange registers a callback invoked after every successful Save.
func (s *Store) OnChange(fn func(*Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
