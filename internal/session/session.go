// Package session tracks uploaded datasets and their conversation history
// across requests.
//
// A Session is created when a file is uploaded and holds the parsed table,
// its schema analysis, and the running chat history. Sessions expire after
// a configurable idle TTL.
package session

import (
	"context"
	"time"

	"github.com/finsight/finsight/internal/analyzer"
	"github.com/finsight/finsight/internal/table"
)

// ChatEntry is one question/answer exchange in a session.
type ChatEntry struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Status   string    `json:"status"`
	AskedAt  time.Time `json:"asked_at"`
}

// Session is the per-upload working state.
type Session struct {
	ID       string             `json:"id"`
	FileName string             `json:"file_name"`
	Table    *table.Table       `json:"-"`
	Analysis *analyzer.Analysis `json:"analysis"`
	History  []ChatEntry        `json:"history"`

	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}

// Store keeps sessions by ID. Implementations must be safe for
// concurrent use.
type Store interface {
	// Create registers a new session for an uploaded dataset and returns
	// it with a fresh ID.
	Create(ctx context.Context, fileName string, t *table.Table, analysis *analyzer.Analysis) (*Session, error)

	// Get returns a snapshot of the session with the given ID and
	// refreshes its idle timer. The snapshot's History is the caller's
	// own copy. Missing or expired sessions return a NotFound error.
	Get(ctx context.Context, id string) (*Session, error)

	// AppendHistory records one exchange on the session.
	AppendHistory(ctx context.Context, id string, entry ChatEntry) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Close stops background maintenance.
	Close() error
}
