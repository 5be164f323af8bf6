package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/google/uuid"
)

// InstanceRepository handles messaging instance database operations.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewInstanceRepository creates a new instance repository.
func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

// Save upserts an instance.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.Instance) error {
	if instance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}

		instance.ID = id.String()
	}

	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO instances (id, owner_id, name, api_url, api_key, instance_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			api_url = EXCLUDED.api_url,
			api_key = EXCLUDED.api_key,
			instance_key = EXCLUDED.instance_key
	`

	_, err := r.db.ExecContext(ctx, query,
		instance.ID, instance.OwnerID, instance.Name,
		instance.APIURL, instance.APIKey, instance.InstanceKey, instance.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}

	return nil
}

// GetByID returns an instance by its ID.
func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	query := `
		SELECT
			id
		  , owner_id
		  , name
		  , api_url
		  , api_key
		  , instance_key
		  , created_at
		FROM instances
		WHERE id = $1
	`

	instance := &models.Instance{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&instance.ID, &instance.OwnerID, &instance.Name,
		&instance.APIURL, &instance.APIKey, &instance.InstanceKey, &instance.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrInstanceNotFound
		}

		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	return instance, nil
}
