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
	"github.com/lib/pq"
)

const campaignColumns = `
	id
  , owner_id
  , instance_id
  , contact_list_id
  , name
  , message
  , media_url
  , media_caption
  , min_delay
  , max_delay
  , scheduled_at
  , status
  , created_at
  , updated_at
`

// CampaignRepository handles campaign database operations.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCampaignRepository creates a new campaign repository.
func NewCampaignRepository(db *sql.DB, logger *slog.Logger) *CampaignRepository {
	return &CampaignRepository{db: db, logger: logger}
}

// Save upserts a campaign.
func (r *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	if campaign.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate campaign ID: %w", err)
		}

		campaign.ID = id.String()
	}

	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	query := `
		INSERT INTO campaigns (id, owner_id, instance_id, contact_list_id, name, message,
			media_url, media_caption, min_delay, max_delay, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			message = EXCLUDED.message,
			media_url = EXCLUDED.media_url,
			media_caption = EXCLUDED.media_caption,
			min_delay = EXCLUDED.min_delay,
			max_delay = EXCLUDED.max_delay,
			scheduled_at = EXCLUDED.scheduled_at,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		campaign.ID, campaign.OwnerID, campaign.InstanceID, campaign.ContactListID,
		campaign.Name, campaign.Message, nullableString(campaign.MediaURL), nullableString(campaign.MediaCaption),
		campaign.MinDelay, campaign.MaxDelay, campaign.ScheduledAt, campaign.Status,
		campaign.CreatedAt, campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	return nil
}

// GetByID returns a campaign by its ID.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", id)

	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignNotFound
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return campaign, nil
}

// GetStatus re-reads only the campaign's current status. The dispatcher
// calls this before every send to observe external stop signals.
func (r *CampaignRepository) GetStatus(ctx context.Context, id string) (models.CampaignStatus, error) {
	var status models.CampaignStatus

	err := r.db.QueryRowContext(ctx, "SELECT status FROM campaigns WHERE id = $1", id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", persistence.ErrCampaignNotFound
		}

		return "", fmt.Errorf("failed to read campaign status: %w", err)
	}

	return status, nil
}

// ListDueScheduled returns campaigns still in scheduled status whose
// scheduled time has passed.
func (r *CampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := "SELECT " + campaignColumns + `
		FROM campaigns
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.CampaignStatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due campaigns: %w", err)
	}

	defer func() {
		closeErr := rows.Close()
		if closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	campaigns := make([]*models.Campaign, 0)

	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

// TransitionStatus conditionally updates the status when the current value
// is one of from, reporting whether the transition happened. A false result
// with no error means an external actor changed the status first.
func (r *CampaignRepository) TransitionStatus(ctx context.Context, id string, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	fromValues := make([]string, len(from))
	for i, status := range from {
		fromValues[i] = string(status)
	}

	query := `
		UPDATE campaigns
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := r.db.ExecContext(ctx, query, to, id, pq.Array(fromValues))
	if err != nil {
		return false, fmt.Errorf("failed to transition campaign status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read transition result: %w", err)
	}

	return affected == 1, nil
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	campaign := &models.Campaign{}

	var mediaURL, mediaCaption sql.NullString

	var scheduledAt sql.NullTime

	err := row.Scan(
		&campaign.ID, &campaign.OwnerID, &campaign.InstanceID, &campaign.ContactListID,
		&campaign.Name, &campaign.Message, &mediaURL, &mediaCaption,
		&campaign.MinDelay, &campaign.MaxDelay, &scheduledAt, &campaign.Status,
		&campaign.CreatedAt, &campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	campaign.MediaURL = mediaURL.String
	campaign.MediaCaption = mediaCaption.String

	if scheduledAt.Valid {
		campaign.ScheduledAt = &scheduledAt.Time
	}

	return campaign, nil
}
