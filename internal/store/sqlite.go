package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: wal: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id           TEXT PRIMARY KEY,
			slug         TEXT NOT NULL UNIQUE,
			summary      TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			priority     TEXT NOT NULL DEFAULT '',
			story_points INTEGER NOT NULL DEFAULT 0,
			labels       TEXT NOT NULL DEFAULT '[]',
			test_plan    TEXT,
			created_at   TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS traces (
			slug       TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS project_context (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			content    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets(created_at);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveGenerated(t *protocol.Ticket, tr *protocol.Trace) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	slug := Slug(t.Summary)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	// Keep the id of a ticket being replaced.
	var id string
	err = tx.QueryRow(`SELECT id FROM tickets WHERE slug = ?`, slug).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = t.ID
		if id == "" {
			id = uuid.NewString()
		}
	case err != nil:
		return fmt.Errorf("store: lookup: %w", err)
	}

	labels := t.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, _ := json.Marshal(labels)
	var testPlan *string
	if t.TestPlan != nil {
		b, _ := json.Marshal(t.TestPlan)
		v := string(b)
		testPlan = &v
	}
	now := s.now().UTC().Format(time.RFC3339Nano)

	_, err = tx.Exec(`
		INSERT INTO tickets (id, slug, summary, description, priority, story_points, labels, test_plan, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			summary=excluded.summary, description=excluded.description, priority=excluded.priority,
			story_points=excluded.story_points, labels=excluded.labels, test_plan=excluded.test_plan,
			created_at=excluded.created_at
	`, id, slug, t.Summary, t.Description, string(t.Priority), t.StoryPoints, string(labelsJSON), testPlan, now)
	if err != nil {
		return fmt.Errorf("store: save ticket: %w", err)
	}

	if tr != nil {
		data, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("store: marshal trace: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO traces (slug, data, created_at) VALUES (?, ?, ?)
			ON CONFLICT(slug) DO UPDATE SET data=excluded.data, created_at=excluded.created_at
		`, slug, string(data), now)
		if err != nil {
			return fmt.Errorf("store: save trace: %w", err)
		}
	} else {
		// A replaced ticket must not keep the previous run's trace.
		if _, err := tx.Exec(`DELETE FROM traces WHERE slug = ?`, slug); err != nil {
			return fmt.Errorf("store: clear trace: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	t.ID = id
	return nil
}

func (s *SQLiteStore) ListTickets() ([]*protocol.Ticket, error) {
	rows, err := s.db.Query(`SELECT id, summary, description, priority, story_points, labels, test_plan
		FROM tickets ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	tickets := []*protocol.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) DeleteTicket(summary string) error {
	slug := Slug(summary)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM tickets WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ticket %q: %w", summary, ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM traces WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("store: delete trace: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTrace(summary string) (*protocol.Trace, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM traces WHERE slug = ?`, Slug(summary)).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trace %q: %w", summary, ErrNotFound)
		}
		return nil, fmt.Errorf("store: get trace: %w", err)
	}
	var tr protocol.Trace
	if err := json.Unmarshal([]byte(data), &tr); err != nil {
		return nil, fmt.Errorf("store: decode trace: %w", err)
	}
	return &tr, nil
}

func (s *SQLiteStore) GetContext() (protocol.ContextDocument, error) {
	var doc protocol.ContextDocument
	err := s.db.QueryRow(`SELECT content FROM project_context WHERE id = 1`).Scan(&doc.Content)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return doc, fmt.Errorf("store: get context: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStore) SaveContext(doc protocol.ContextDocument) error {
	_, err := s.db.Exec(`
		INSERT INTO project_context (id, content, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content=excluded.content, updated_at=excluded.updated_at
	`, doc.Content, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: save context: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func scanTicket(rows *sql.Rows) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var priority, labelsJSON string
	var testPlan *string
	if err := rows.Scan(&t.ID, &t.Summary, &t.Description, &priority, &t.StoryPoints, &labelsJSON, &testPlan); err != nil {
		return nil, err
	}
	t.Priority = protocol.Priority(priority)
	json.Unmarshal([]byte(labelsJSON), &t.Labels)
	if t.Labels == nil {
		t.Labels = []string{}
	}
	if testPlan != nil {
		var tp protocol.TestPlan
		if err := json.Unmarshal([]byte(*testPlan), &tp); err == nil {
			t.TestPlan = &tp
		}
	}
	return &t, nil
}
