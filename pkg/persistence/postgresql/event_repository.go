package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/google/uuid"
)

// EventRepository appends to the observability event log.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger}
}

// Append inserts an event. The log is append-only; there is no read path.
func (r *EventRepository) Append(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate event ID: %w", err)
		}

		event.ID = id.String()
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	query := `
		INSERT INTO events (id, owner_id, event_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID, nullableString(event.OwnerID), event.Type, dataJSON, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}
