// Package session provides durable run tracking and its SQLite
// implementation.
package session

import (
	"context"

	"github.com/rcliao/discovery-agent/internal/model"
)

// CreateParams holds parameters for starting a new session record.
type CreateParams struct {
	Topic         string
	MaxDocuments  int
	MaxHypotheses int
	Iterations    int
	Model         string
}

// ListParams holds parameters for listing sessions.
type ListParams struct {
	Status string // empty means all
	Limit  int
}

// Store defines the session persistence interface.
type Store interface {
	// Create inserts a new session in pending state and returns it.
	Create(ctx context.Context, p CreateParams) (*model.Session, error)

	// Get retrieves a session by id.
	Get(ctx context.Context, id string) (*model.Session, error)

	// List lists sessions, newest first, optionally filtered by status.
	List(ctx context.Context, p ListParams) ([]model.Session, error)

	// UpdateStatus transitions a session. Terminal statuses stamp
	// completed_at; errorMessage is recorded for failures.
	UpdateStatus(ctx context.Context, id, status, errorMessage string) error

	// UpdateProgress records progress percent and phase, appending a log
	// line when message is non-empty.
	UpdateProgress(ctx context.Context, id string, progress int, phase, message string) error

	// SaveResultsPath records where run artifacts were written.
	SaveResultsPath(ctx context.Context, id, path string) error

	// Logs returns a session's log lines in timestamp order.
	Logs(ctx context.Context, id string) ([]model.SessionLog, error)

	// Delete removes a session and its logs.
	Delete(ctx context.Context, id string) error

	// Close closes the store.
	Close() error
}
