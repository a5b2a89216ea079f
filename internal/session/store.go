package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    cursor INTEGER NOT NULL DEFAULT -1,
    model TEXT NOT NULL DEFAULT 'gemini-2.5-flash-image'
);

CREATE TABLE IF NOT EXISTS versions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    operation TEXT NOT NULL,
    instruction TEXT,
    image_path TEXT NOT NULL,
    mime_type TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    metadata_json TEXT,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
    UNIQUE (session_id, position)
);

CREATE TABLE IF NOT EXISTS cost_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    version_id TEXT NOT NULL,
    session_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    cost REAL NOT NULL,
    image_count INTEGER NOT NULL DEFAULT 1,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (version_id) REFERENCES versions(id) ON DELETE CASCADE,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_versions_session_id ON versions(session_id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_cost_log_timestamp ON cost_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_cost_log_session_id ON cost_log(session_id);
`

type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(dbPath)
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pixedit", "sessions.db"), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, created_at, updated_at, cursor, model)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.CreatedAt, sess.UpdatedAt, sess.Cursor, sess.Model)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, cursor, model
		 FROM sessions WHERE id = ?`, id)

	sess := &Session{}
	var name sql.NullString
	err := row.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &sess.Cursor, &sess.Model)
	if err != nil {
		return nil, err
	}
	sess.Name = name.String
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET name = ?, updated_at = ?, cursor = ?, model = ?
		 WHERE id = ?`,
		sess.Name, sess.UpdatedAt, sess.Cursor, sess.Model, sess.ID)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at, cursor, model
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var name sql.NullString
		if err := rows.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &sess.Cursor, &sess.Model); err != nil {
			return nil, err
		}
		sess.Name = name.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) CreateVersion(ctx context.Context, v *Version) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO versions (id, session_id, position, operation, instruction, image_path, mime_type, created_at, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.SessionID, v.Position, v.Operation, nullString(v.Instruction),
		v.ImagePath, v.MimeType, v.CreatedAt, v.Metadata.ToJSON())
	return err
}

func (s *Store) GetVersion(ctx context.Context, id string) (*Version, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, position, operation, instruction, image_path, mime_type, created_at, metadata_json
		 FROM versions WHERE id = ?`, id)

	v := &Version{}
	var instruction, metadataJSON sql.NullString
	err := row.Scan(&v.ID, &v.SessionID, &v.Position, &v.Operation, &instruction,
		&v.ImagePath, &v.MimeType, &v.CreatedAt, &metadataJSON)
	if err != nil {
		return nil, err
	}
	v.Instruction = instruction.String
	v.Metadata = ParseVersionMetadata(metadataJSON.String)
	return v, nil
}

// ListVersions returns a session's versions ordered by position, which is
// the append order of the linear history.
func (s *Store) ListVersions(ctx context.Context, sessionID string) ([]*Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, position, operation, instruction, image_path, mime_type, created_at, metadata_json
		 FROM versions WHERE session_id = ? ORDER BY position ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*Version
	for rows.Next() {
		v := &Version{}
		var instruction, metadataJSON sql.NullString
		if err := rows.Scan(&v.ID, &v.SessionID, &v.Position, &v.Operation, &instruction,
			&v.ImagePath, &v.MimeType, &v.CreatedAt, &metadataJSON); err != nil {
			return nil, err
		}
		v.Instruction = instruction.String
		v.Metadata = ParseVersionMetadata(metadataJSON.String)
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// DeleteVersionsFrom removes the redo tail: every version at or past the
// given position. Called before persisting an append that follows an undo.
func (s *Store) DeleteVersionsFrom(ctx context.Context, sessionID string, position int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM versions WHERE session_id = ? AND position >= ?`,
		sessionID, position)
	return err
}

func (s *Store) CountVersions(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM versions WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func DefaultImageDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".pixedit", "images"), nil
}

func ImageDir(sessionID string) (string, error) {
	baseDir, err := DefaultImageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(baseDir, sessionID), nil
}

func EnsureImageDir(sessionID string) (string, error) {
	dir, err := ImageDir(sessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

type CostEntry struct {
	VersionID  string
	SessionID  string
	Provider   string
	Model      string
	Cost       float64
	ImageCount int
	Timestamp  time.Time
}

type CostSummary struct {
	TotalCost  float64
	ImageCount int
	EntryCount int
}

func (s *Store) LogCost(ctx context.Context, entry *CostEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cost_log (version_id, session_id, provider, model, cost, image_count, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID, entry.SessionID, entry.Provider, entry.Model,
		entry.Cost, entry.ImageCount, entry.Timestamp)
	return err
}

func (s *Store) GetCostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0), COUNT(*)
		 FROM cost_log WHERE timestamp >= ? AND timestamp < ?`,
		start, end)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetTotalCost(ctx context.Context) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0), COUNT(*)
		 FROM cost_log`)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetSessionCost(ctx context.Context, sessionID string) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0), COUNT(*)
		 FROM cost_log WHERE session_id = ?`,
		sessionID)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}
