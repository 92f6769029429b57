package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the production Store, backed by a local SQLite database.
// Timestamps are stored as unix nanoseconds so newest-first ordering is
// stable even for saves landing within the same second.
type SQLiteStore struct {
	db  *sql.DB
	log *bolt.Logger
}

func NewSQLiteStore(dbPath string, log *bolt.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			text TEXT NOT NULL,
			context TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_session
			ON memories(session_id, created_at DESC);`,
	}
	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts a record and reports the outcome as a SaveResult. Store
// failures never escape: they are logged and turned into a user-safe
// failure message.
func (s *SQLiteStore) Save(ctx context.Context, sessionID, text, utterance string) SaveResult {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (session_id, text, context, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, text, utterance, now.UnixNano(), now.UnixNano())
	if err != nil {
		s.log.Error().Str("session", sessionID).Err(err).Msg("memory save failed")
		return SaveResult{Success: false, Message: SaveFailedMessage}
	}
	id, err := res.LastInsertId()
	if err != nil {
		s.log.Warn().Str("session", sessionID).Err(err).Msg("memory saved without record id")
	}
	return SaveResult{Success: true, Message: ConfirmMessage(text), RecordID: id}
}

// Load returns up to limit records for sessionID, newest first. Absence of
// memory is a safe degraded mode, so failures yield an empty result.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string, limit int) []Record {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, text, context, created_at, updated_at
		 FROM memories WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		sessionID, limit)
	if err != nil {
		s.log.Warn().Str("session", sessionID).Err(err).Msg("memory load failed")
		return nil
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created, updated int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Text, &r.Context, &created, &updated); err != nil {
			continue
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		r.UpdatedAt = time.Unix(0, updated).UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn().Str("session", sessionID).Err(err).Msg("memory load truncated")
	}
	return records
}
