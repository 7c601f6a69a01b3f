// Package store – sqlite.go is the SQLite-backed Store implementation.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver.
)

// SQLiteStore persists conversation messages in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the conversation database at path
// and ensures the schema exists.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("opening conversation database: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger.With("component", "store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id   TEXT NOT NULL,
			content   TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			from_me   INTEGER NOT NULL,
			UNIQUE(user_id, content, timestamp, from_me)
		);
		CREATE INDEX IF NOT EXISTS idx_messages_user_ts
			ON messages(user_id, timestamp);`)
	if err != nil {
		return fmt.Errorf("migrating conversation schema: %w", err)
	}
	return nil
}

// Append inserts a message, ignoring duplicates on the natural key.
func (s *SQLiteStore) Append(ctx context.Context, msg Message) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (user_id, content, timestamp, from_me)
		VALUES (?, ?, ?, ?)`,
		msg.UserID, msg.Content, msg.Timestamp, boolToInt(msg.FromMe))
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Debug("duplicate message ignored",
			"user", msg.UserID, "timestamp", msg.Timestamp)
	}
	return nil
}

// ListAll returns all messages for a user in ascending timestamp order.
func (s *SQLiteStore) ListAll(ctx context.Context, userID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, content, timestamp, from_me
		FROM messages
		WHERE user_id = ?
		ORDER BY timestamp ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListRecent returns the last limit messages for a user, ascending.
// The inner query selects the newest rows; the outer flips them back.
func (s *SQLiteStore) ListRecent(ctx context.Context, userID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, content, timestamp, from_me FROM (
			SELECT id, user_id, content, timestamp, from_me
			FROM messages
			WHERE user_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// DeleteAll removes every message stored for a user.
func (s *SQLiteStore) DeleteAll(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("conversation history cleared", "user", userID, "deleted", n)
	return nil
}

// Count returns the number of stored messages for a user.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		var (
			m      Message
			fromMe int
		)
		if err := rows.Scan(&m.UserID, &m.Content, &m.Timestamp, &fromMe); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		m.FromMe = fromMe != 0
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
