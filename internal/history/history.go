// Package history records finished streaming runs in SQLite so they
// can be listed, reread, and searched later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusDone    = "done"
	StatusStopped = "stopped"
	StatusError   = "error"
)

// Run is one finished streaming run.
type Run struct {
	ID           int64
	Mode         string // "play" or "ask"
	Provider     string
	Model        string
	Prompt       string // source file, literal text, or question
	Markdown     string // final document
	Status       string
	Error        string
	Duration     time.Duration
	Publications int
	CreatedAt    time.Time
}

// Summary is a Run without the document body, for listings.
type Summary struct {
	ID           int64
	Mode         string
	Provider     string
	Model        string
	Prompt       string
	Status       string
	Duration     time.Duration
	Publications int
	CreatedAt    time.Time
}

// SearchResult is one full-text match with a highlighted snippet.
type SearchResult struct {
	ID        int64
	Mode      string
	Provider  string
	Model     string
	Snippet   string
	CreatedAt time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mode TEXT NOT NULL CHECK (mode IN ('play', 'ask')),
    provider TEXT,
    model TEXT,
    prompt TEXT,
    markdown TEXT,
    status TEXT NOT NULL DEFAULT 'done',
    error TEXT,
    duration_ms INTEGER DEFAULT 0,
    publications INTEGER DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);

-- Full-text search over prompts and final documents
CREATE VIRTUAL TABLE IF NOT EXISTS runs_fts USING fts5(
    prompt,
    markdown,
    content='runs',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS runs_ai AFTER INSERT ON runs BEGIN
    INSERT INTO runs_fts(rowid, prompt, markdown) VALUES (new.id, new.prompt, new.markdown);
END;

CREATE TRIGGER IF NOT EXISTS runs_ad AFTER DELETE ON runs BEGIN
    INSERT INTO runs_fts(runs_fts, rowid, prompt, markdown) VALUES ('delete', old.id, old.prompt, old.markdown);
END;

CREATE TRIGGER IF NOT EXISTS runs_au AFTER UPDATE ON runs BEGIN
    INSERT INTO runs_fts(runs_fts, rowid, prompt, markdown) VALUES ('delete', old.id, old.prompt, old.markdown);
    INSERT INTO runs_fts(rowid, prompt, markdown) VALUES (new.id, new.prompt, new.markdown);
END;
`

// Store is a SQLite-backed run archive.
type Store struct {
	db   *sql.DB
	skip []glob.Glob
}

// Open opens (creating if needed) the run database at path. Prompts
// matching any skip pattern are never recorded.
func Open(path string, skipPatterns []string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	skip := make([]glob.Glob, 0, len(skipPatterns))
	for _, p := range skipPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("compile skip pattern %q: %w", p, err)
		}
		skip = append(skip, g)
	}

	return &Store{db: db, skip: skip}, nil
}

// ShouldSkip reports whether a prompt matches a configured skip glob.
func (s *Store) ShouldSkip(prompt string) bool {
	for _, g := range s.skip {
		if g.Match(prompt) {
			return true
		}
	}
	return false
}

// Add records a finished run. Runs whose prompt matches a skip pattern
// are dropped without error.
func (s *Store) Add(ctx context.Context, run *Run) error {
	if s.ShouldSkip(run.Prompt) {
		return nil
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusDone
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (mode, provider, model, prompt, markdown, status, error, duration_ms, publications, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Mode, run.Provider, run.Model, run.Prompt, run.Markdown,
		run.Status, nullString(run.Error), run.Duration.Milliseconds(),
		run.Publications, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	run.ID, _ = result.LastInsertId()
	return nil
}

// Get retrieves one run by ID, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, mode, provider, model, prompt, markdown, status, error, duration_ms, publications, created_at
		FROM runs WHERE id = ?`, id)

	var run Run
	var errText sql.NullString
	var durationMs int64
	err := row.Scan(&run.ID, &run.Mode, &run.Provider, &run.Model, &run.Prompt,
		&run.Markdown, &run.Status, &errText, &durationMs, &run.Publications, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if errText.Valid {
		run.Error = errText.String
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mode, provider, model, prompt, status, duration_ms, publications, created_at
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var results []Summary
	for rows.Next() {
		var sum Summary
		var durationMs int64
		err := rows.Scan(&sum.ID, &sum.Mode, &sum.Provider, &sum.Model, &sum.Prompt,
			&sum.Status, &durationMs, &sum.Publications, &sum.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		sum.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, sum)
	}
	return results, rows.Err()
}

// Search finds runs whose prompt or document matches the FTS5 query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.mode, r.provider, r.model, snippet(runs_fts, 1, '**', '**', '...', 32), r.created_at
		FROM runs_fts f
		JOIN runs r ON r.id = f.rowid
		WHERE runs_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search runs: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		err := rows.Scan(&r.ID, &r.Mode, &r.Provider, &r.Model, &r.Snippet, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Delete removes a run.
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("run not found: %d", id)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// nullString converts an empty string to NULL for storage.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
