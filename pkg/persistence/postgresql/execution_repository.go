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

// ExecutionRepository handles flow run database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

// Create inserts a new execution in running status.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	if execution.Status == "" {
		execution.Status = models.ExecutionStatusRunning
	}

	if execution.StartedAt.IsZero() {
		execution.StartedAt = time.Now().UTC()
	}

	if execution.Context == nil {
		execution.Context = models.ExecutionContext{}
	}

	contextJSON, err := json.Marshal(execution.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal execution context: %w", err)
	}

	query := `
		INSERT INTO executions (id, owner_id, flow_id, status, context, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID, execution.OwnerID, execution.FlowID, execution.Status, contextJSON, execution.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	return nil
}

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	query := `
		SELECT
			id
		  , owner_id
		  , flow_id
		  , status
		  , context
		  , started_at
		  , completed_at
		  , error_message
		FROM executions
		WHERE id = $1
	`

	execution := &models.Execution{}

	var contextJSON []byte

	var completedAt sql.NullTime

	var errorMessage sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&execution.ID, &execution.OwnerID, &execution.FlowID, &execution.Status,
		&contextJSON, &execution.StartedAt, &completedAt, &errorMessage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	if len(contextJSON) > 0 {
		err = json.Unmarshal(contextJSON, &execution.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
		}
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	execution.ErrorMessage = errorMessage.String

	return execution, nil
}

// UpdateContext replaces an execution's mutable context.
func (r *ExecutionRepository) UpdateContext(ctx context.Context, id string, execCtx models.ExecutionContext) error {
	contextJSON, err := json.Marshal(execCtx)
	if err != nil {
		return fmt.Errorf("failed to marshal execution context: %w", err)
	}

	return r.exec(ctx, "UPDATE executions SET context = $1 WHERE id = $2", contextJSON, id)
}

// MarkSuccess finalizes an execution as successful. The conditional on
// running status makes the transition happen exactly once.
func (r *ExecutionRepository) MarkSuccess(ctx context.Context, id string, completedAt time.Time) error {
	query := `
		UPDATE executions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4
	`

	return r.exec(ctx, query, models.ExecutionStatusSuccess, completedAt, id, models.ExecutionStatusRunning)
}

// MarkFailed finalizes an execution as failed with the fatal job's error.
func (r *ExecutionRepository) MarkFailed(ctx context.Context, id string, completedAt time.Time, errorMessage string) error {
	query := `
		UPDATE executions
		SET status = $1, completed_at = $2, error_message = $3
		WHERE id = $4 AND status = $5
	`

	return r.exec(ctx, query, models.ExecutionStatusFailed, completedAt, errorMessage, id, models.ExecutionStatusRunning)
}

func (r *ExecutionRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}
