// Package history records the requests sent through the explorer in a
// SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Migration version constants
const (
	MigrationV1 = 1 // calls table
	MigrationV2 = 2 // indexes for listing by template and time
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV2

// Entry is one recorded call.
type Entry struct {
	ID         string        `json:"id"`
	Time       time.Time     `json:"time"`
	Template   string        `json:"template"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     int           `json:"status,omitempty"`
	Outcome    string        `json:"outcome,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Violations int           `json:"violations,omitempty"`
}

// Query filters List. Zero values match everything; Limit defaults to 50.
type Query struct {
	Template string `schema:"template"`
	Method   string `schema:"method"`
	Outcome  string `schema:"outcome"`
	Limit    int    `schema:"limit" validate:"gte=0,lte=1000"`
}

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the history database at path. ":memory:" gives a
// private in-memory store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores e, assigning an ID and time when they are unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, ts, template, method, path, status, outcome, duration_ms, error, violations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Time.UnixMilli(), e.Template, e.Method, e.Path, e.Status, e.Outcome,
		e.Duration.Milliseconds(), e.Error, e.Violations)
	if err != nil {
		return fmt.Errorf("recording call: %w", err)
	}
	return nil
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if q.Template != "" {
		where = append(where, "template = ?")
		args = append(args, q.Template)
	}
	if q.Method != "" {
		where = append(where, "method = ?")
		args = append(args, strings.ToUpper(q.Method))
	}
	if q.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, q.Outcome)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, ts, template, method, path, status, outcome, duration_ms, error, violations FROM calls`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing calls: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			ts, durMs int64
		)
		if err := rows.Scan(&e.ID, &ts, &e.Template, &e.Method, &e.Path, &e.Status, &e.Outcome, &durMs, &e.Error, &e.Violations); err != nil {
			return nil, err
		}
		e.Time = time.UnixMilli(ts).UTC()
		e.Duration = time.Duration(durMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	s.logger.Debug("history schema", "version", current, "target", CurrentSchemaVersion)

	migrations := []struct {
		version     int
		description string
		stmts       []string
	}{
		{MigrationV1, "Create calls table", []string{`
			CREATE TABLE IF NOT EXISTS calls (
				id TEXT PRIMARY KEY,
				ts INTEGER NOT NULL,
				template TEXT NOT NULL,
				method TEXT NOT NULL,
				path TEXT NOT NULL,
				status INTEGER NOT NULL DEFAULT 0,
				outcome TEXT NOT NULL DEFAULT '',
				duration_ms INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				violations INTEGER NOT NULL DEFAULT 0
			)`,
		}},
		{MigrationV2, "Add listing indexes", []string{
			"CREATE INDEX IF NOT EXISTS idx_calls_ts ON calls(ts DESC)",
			"CREATE INDEX IF NOT EXISTS idx_calls_template_ts ON calls(template, ts DESC)",
		}},
	}
	for _, m := range migrations {
		if current >= m.version {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("migration v%d failed: %w", m.version, err)
			}
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.version, m.description); err != nil {
			return err
		}
		s.logger.Info("applied history migration", "version", m.version, "description", m.description)
	}
	return nil
}
