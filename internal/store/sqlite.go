package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/melune/internal/domain"
)

//go:embed schema.sql
var schema string

// Persisted document names
const (
	NotebookDocument = "notebook-storage"
	ProfileDocument  = "user-profile"
	CycleDocument    = "cycle-storage"
)

// Store keeps whole JSON documents in sqlite, one row per named document
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// load decodes a document into v. A missing document leaves v untouched
// and reports found=false.
func (s *Store) load(ctx context.Context, name string, v any) (found bool, err error) {
	var body string
	err = s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE name = ?",
		name,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get document %s: %w", name, err)
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return false, fmt.Errorf("decode document %s: %w", name, err)
	}
	return true, nil
}

// save writes the full document, replacing any previous version
func (s *Store) save(ctx context.Context, name string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (name, body, updated_at) VALUES (?, ?, ?)",
		name, string(body), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("put document %s: %w", name, err)
	}
	return nil
}

// LoadNotebook returns the notebook document, empty when none was saved yet
func (s *Store) LoadNotebook(ctx context.Context) (*domain.NotebookDocument, error) {
	var doc domain.NotebookDocument
	if _, err := s.load(ctx, NotebookDocument, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SaveNotebook replaces the notebook document
func (s *Store) SaveNotebook(ctx context.Context, doc *domain.NotebookDocument) error {
	return s.save(ctx, NotebookDocument, doc)
}

// LoadProfile returns the user profile, empty on first launch
func (s *Store) LoadProfile(ctx context.Context) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if _, err := s.load(ctx, ProfileDocument, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile replaces the user profile
func (s *Store) SaveProfile(ctx context.Context, p *domain.UserProfile) error {
	return s.save(ctx, ProfileDocument, p)
}

// LoadCycle returns the cycle state
func (s *Store) LoadCycle(ctx context.Context) (*domain.CycleState, error) {
	var c domain.CycleState
	if _, err := s.load(ctx, CycleDocument, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SaveCycle replaces the cycle state
func (s *Store) SaveCycle(ctx context.Context, c *domain.CycleState) error {
	return s.save(ctx, CycleDocument, c)
}

// Documents lists the stored document names with their last write time
func (s *Store) Documents(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, updated_at FROM documents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var updated time.Time
		if err := rows.Scan(&name, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs[name] = updated
	}
	return docs, rows.Err()
}

// Reset deletes every document (full app reset)
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("reset documents: %w", err)
	}
	return nil
}
