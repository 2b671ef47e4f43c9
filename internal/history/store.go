// Package history persists recognized voice queries in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sessionId TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT 'microphone',
	engine TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	confidence REAL,
	success INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	createdAt REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS queries_createdAt ON queries(createdAt DESC);
`

// Source is where the audio of an entry came from.
type Source string

const (
	SourceMicrophone Source = "microphone"
	SourceImport     Source = "import"
)

// Entry is one finished transcription session.
type Entry struct {
	ID        int64
	SessionID string
	Source    Source
	Engine    string
	Text      string
	// Confidence is nil when the engine reported none.
	Confidence *float64
	Success    bool
	Reason     string
	Error      string
	CreatedAt  time.Time
}

// Store reads and writes query history.
type Store struct {
	db *sql.DB
}

// DefaultPath returns $XDG_DATA_HOME/voxsearch/history.sqlite.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxsearch", "history.sqlite"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for history: %w", err)
	}
	return filepath.Join(home, ".local", "share", "voxsearch", "history.sqlite"), nil
}

// Open opens or creates the database at path with WAL journaling.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts entry and returns its id.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	if entry.SessionID == "" {
		return 0, errors.New("history entry requires a session id")
	}
	if entry.Source == "" {
		entry.Source = SourceMicrophone
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var confidence sql.NullFloat64
	if entry.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *entry.Confidence, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO queries (sessionId, source, engine, text, confidence, success, reason, error, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.SessionID, string(entry.Source), entry.Engine, entry.Text, confidence,
		boolToInt(entry.Success), entry.Reason, entry.Error, unixFromTime(entry.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	return result.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sessionId, source, engine, text, confidence, success, reason, error, createdAt
		FROM queries
		ORDER BY createdAt DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var source string
		var confidence sql.NullFloat64
		var success int
		var createdAt float64
		if err := rows.Scan(&e.ID, &e.SessionID, &source, &e.Engine, &e.Text,
			&confidence, &success, &e.Reason, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Source = Source(source)
		if confidence.Valid {
			c := confidence.Float64
			e.Confidence = &c
		}
		e.Success = success != 0
		e.CreatedAt = timeFromUnix(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
