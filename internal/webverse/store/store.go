// Package store provides the local SQLite persistence for webverse:
// the device identity, the runtime lock, and (in local mode) the
// per-lab progress table.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/webverselabs/webverse/internal/log"

	// Import pure-Go SQLite driver for database/sql (no CGO required)
	_ "modernc.org/sqlite"
)

// Row is one persisted progress record
type Row struct {
	LabID         string
	StartedAt     string
	SolvedAt      string
	Attempts      int
	LastAttemptAt string
	Notes         string
}

// Store wraps the local database
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path, applies the
// schema, runs additive migrations and seeds the device identity.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// WAL mode for concurrent reads/writes and a busy timeout so a
	// second process backs off instead of failing immediately.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := s.seedDevice(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed device identity: %w", err)
	}
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
		CREATE TABLE IF NOT EXISTS device (
			id TEXT PRIMARY KEY,
			created_at TEXT,
			first_seen_sent INTEGER DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS runtime_lock (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			active_lab_id TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS progress (
			lab_id TEXT PRIMARY KEY,
			started_at TEXT,
			solved_at TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT ''
		);
		INSERT OR IGNORE INTO runtime_lock (id, active_lab_id) VALUES (1, '');
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrate applies additive, backward-compatible schema changes. The
// store persists across upgrades, so new columns always default to
// empty rather than rewriting existing rows.
func (s *Store) migrate() error {
	cols, err := s.tableColumns("progress")
	if err != nil {
		return err
	}
	if !cols["last_attempt_at"] {
		if _, err := s.db.Exec(`ALTER TABLE progress ADD COLUMN last_attempt_at TEXT`); err != nil {
			return err
		}
		log.Debug("Added progress.last_attempt_at column")
	}
	return nil
}

func (s *Store) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// seedDevice creates the device identity on first run. The identifier
// is generated once per installation and never regenerated.
func (s *Store) seedDevice() error {
	var id string
	err := s.db.QueryRow(`SELECT id FROM device LIMIT 1`).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	did := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO device (id, created_at, first_seen_sent) VALUES (?, ?, 0)`,
		did, nowUTC(),
	)
	return err
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}
