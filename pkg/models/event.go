package models

import (
	"time"
)

// Event is one row of the append-only event log. The engine writes events
// for observability and never reads them back.
type Event struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Type      string         `json:"type" validate:"required"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
