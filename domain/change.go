package domain

import "time"

// Change operations published to the change queue.
const (
	ChangeCreated  = "created"
	ChangeReplaced = "replaced"
	ChangeDeleted  = "deleted"
)

// Change describes a committed mutation for downstream consumers.
type Change struct {
	Op        string    `json:"op"`
	EventID   string    `json:"eventId"`
	OwnerID   string    `json:"ownerId"`
	Timestamp time.Time `json:"timestamp"`
}
