// Package store implements the conversation store: an append-only,
// per-user message log backed by SQLite. Inserts are idempotent on the
// natural key (user_id, content, timestamp, from_me), so replayed or
// history-synced messages never create duplicate rows.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Message is one stored conversation message. Timestamp is unix seconds.
type Message struct {
	UserID    string
	Content   string
	Timestamp int64
	FromMe    bool
}

// Store is the conversation store contract. Implementations must keep
// Append idempotent under concurrent callers; the rest of the system is
// single-writer but administrative reads may happen at any time.
type Store interface {
	// Append inserts a message. Duplicate natural keys are a silent no-op.
	Append(ctx context.Context, msg Message) error

	// ListAll returns every message for a user, ascending by timestamp.
	ListAll(ctx context.Context, userID string) ([]Message, error)

	// ListRecent returns the most recent limit messages for a user,
	// still ascending by timestamp.
	ListRecent(ctx context.Context, userID string, limit int) ([]Message, error)

	// DeleteAll removes every message for a user.
	DeleteAll(ctx context.Context, userID string) error

	// Count returns the number of stored messages for a user.
	Count(ctx context.Context, userID string) (int, error)

	// Close releases the underlying database handle.
	Close() error
}

// FormatHistory renders messages as "USER:"/"ME:" lines for LLM context.
func FormatHistory(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range msgs {
		speaker := "USER"
		if m.FromMe {
			speaker = "ME"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
