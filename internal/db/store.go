package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides read/write access to the local backup database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default backup database path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".opscribe", "backups.sqlite")
}

const schema = `
CREATE TABLE IF NOT EXISTS backups (
	sessionId  TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	savedAt    REAL NOT NULL,
	transcript TEXT NOT NULL DEFAULT '',
	audio      BLOB
);
`

// Open opens (creating if needed) the backup database with WAL.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes or replaces the backup for a session.
func (s *Store) Save(b Backup) error {
	savedAt := b.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO backups (sessionId, name, savedAt, transcript, audio)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sessionId) DO UPDATE SET
			name = excluded.name,
			savedAt = excluded.savedAt,
			transcript = excluded.transcript,
			audio = excluded.audio
	`, b.SessionID, b.Name, unixFloat(savedAt), b.Transcript, b.Audio)
	if err != nil {
		return fmt.Errorf("save backup: %w", err)
	}
	return nil
}

// Backup returns the stored backup for a session, or nil if absent.
func (s *Store) Backup(sessionID string) (*Backup, error) {
	row := s.db.QueryRow(`
		SELECT sessionId, name, savedAt, transcript, audio
		FROM backups
		WHERE sessionId = ?
	`, sessionID)

	var b Backup
	var savedAt float64
	if err := row.Scan(&b.SessionID, &b.Name, &savedAt, &b.Transcript, &b.Audio); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan backup: %w", err)
	}
	b.SavedAt = timeFromUnix(savedAt)
	return &b, nil
}

// List returns backup summaries, most recent first.
func (s *Store) List() ([]Info, error) {
	rows, err := s.db.Query(`
		SELECT sessionId, name, savedAt, COALESCE(LENGTH(audio), 0)
		FROM backups
		ORDER BY savedAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var savedAt float64
		if err := rows.Scan(&info.SessionID, &info.Name, &savedAt, &info.AudioBytes); err != nil {
			return nil, fmt.Errorf("scan backup info: %w", err)
		}
		info.SavedAt = timeFromUnix(savedAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes a stored backup.
func (s *Store) Delete(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM backups WHERE sessionId = ?`, sessionID); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
