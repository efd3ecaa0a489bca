package api

import (
	"context"

	"eventboard-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id string) (domain.Event, error)
	InsertEvent(ctx context.Context, draft domain.Draft, ownerID string) (domain.Event, error)
	ReplaceEvent(ctx context.Context, id string, fields domain.Fields) error
	DeleteEvent(ctx context.Context, id string) error
	PublishChange(ctx context.Context, ch domain.Change) error
}

// NotFoundError is returned by storage when no record matches the requested
// identifier.
type NotFoundError interface {
	error
	NotFound()
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents replay of mutation requests carrying the same
// idempotency key.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the insert fails.
	Remove(ctx context.Context, userID, key string) error
}

const mutationBodyMaxSize = 64 * 1024 // 64 KiB

// GET /api/events failure body
type errorResponse struct {
	Error string `json:"error"`
}

// mutation endpoints response body
type mutationResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Event   *domain.Event `json:"event,omitempty"`
}
