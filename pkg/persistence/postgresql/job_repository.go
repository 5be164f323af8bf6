package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/google/uuid"
)

const jobColumns = `
	id
  , owner_id
  , execution_id
  , node_id
  , node_type
  , node_data
  , status
  , scheduled_at
  , processed_at
  , retry_count
  , max_retries
  , error_message
  , created_at
  , updated_at
`

// JobRepository handles job queue database operations.
type JobRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sql.DB, logger *slog.Logger) *JobRepository {
	return &JobRepository{db: db, logger: logger}
}

// Create inserts a new job. Missing defaults (ID, status, max retries) are
// filled in.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()

	if job.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate job ID: %w", err)
		}

		job.ID = id.String()
	}

	if job.Status == "" {
		job.Status = models.JobStatusPending
	}

	if job.MaxRetries == 0 {
		job.MaxRetries = models.DefaultMaxRetries
	}

	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = now
	}

	job.CreatedAt = now
	job.UpdatedAt = now

	nodeDataJSON, err := json.Marshal(job.NodeData)
	if err != nil {
		return fmt.Errorf("failed to marshal node data: %w", err)
	}

	query := `
		INSERT INTO jobs (id, owner_id, execution_id, node_id, node_type, node_data,
			status, scheduled_at, retry_count, max_retries, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		job.ID, job.OwnerID, job.ExecutionID, job.NodeID, job.NodeType, nodeDataJSON,
		job.Status, job.ScheduledAt, job.RetryCount, job.MaxRetries, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// GetByID returns a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = $1", id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrJobNotFound
		}

		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	return job, nil
}

// ListDue returns up to limit pending jobs whose scheduled time has passed,
// oldest first.
func (r *JobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	query := "SELECT " + jobColumns + `
		FROM jobs
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, models.JobStatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}

	defer r.closeRows(ctx, rows)

	return collectJobs(rows)
}

// ListByExecution returns every job of an execution, oldest first.
func (r *JobRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.Job, error) {
	query := "SELECT " + jobColumns + `
		FROM jobs
		WHERE execution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution jobs: %w", err)
	}

	defer r.closeRows(ctx, rows)

	return collectJobs(rows)
}

// Claim atomically moves a job pending -> processing. The conditional
// update is the admission gate between concurrent poller invocations:
// exactly one caller observes true.
func (r *JobRepository) Claim(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, models.JobStatusProcessing, id, models.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}

	return affected == 1, nil
}

// MarkCompleted finalizes a successfully processed job.
func (r *JobRepository) MarkCompleted(ctx context.Context, id string, processedAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1, processed_at = $2, updated_at = NOW()
		WHERE id = $3
	`

	return r.exec(ctx, query, models.JobStatusCompleted, processedAt, id)
}

// ScheduleRetry returns a failed job to the pending queue with its retry
// counter incremented and a future schedule time.
func (r *JobRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, scheduledAt time.Time, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, retry_count = $2, scheduled_at = $3, error_message = $4, updated_at = NOW()
		WHERE id = $5
	`

	return r.exec(ctx, query, models.JobStatusPending, retryCount, scheduledAt, errorMessage, id)
}

// MarkFailed terminally fails a job. The retry count is persisted along
// with the terminal status so an exhausted job records the attempt that
// killed it.
func (r *JobRepository) MarkFailed(ctx context.Context, id string, retryCount int, processedAt time.Time, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, retry_count = $2, processed_at = $3, error_message = $4, updated_at = NOW()
		WHERE id = $5
	`

	return r.exec(ctx, query, models.JobStatusFailed, retryCount, processedAt, errorMessage, id)
}

func (r *JobRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrJobNotFound
	}

	return nil
}

func (r *JobRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}

	var nodeDataJSON []byte

	var processedAt sql.NullTime

	var errorMessage sql.NullString

	err := row.Scan(
		&job.ID, &job.OwnerID, &job.ExecutionID, &job.NodeID, &job.NodeType, &nodeDataJSON,
		&job.Status, &job.ScheduledAt, &processedAt, &job.RetryCount, &job.MaxRetries,
		&errorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(nodeDataJSON) > 0 {
		err = json.Unmarshal(nodeDataJSON, &job.NodeData)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal node data: %w", err)
		}
	}

	if processedAt.Valid {
		job.ProcessedAt = &processedAt.Time
	}

	job.ErrorMessage = errorMessage.String

	return job, nil
}

func collectJobs(rows *sql.Rows) ([]*models.Job, error) {
	jobs := make([]*models.Job, 0)

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}

		jobs = append(jobs, job)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}

	return jobs, nil
}
