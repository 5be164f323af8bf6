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

// AccountRepository handles owner account database operations.
type AccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *sql.DB, logger *slog.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

// Save upserts an account.
func (r *AccountRepository) Save(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()

	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}

	account.UpdatedAt = now

	if account.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate account ID: %w", err)
		}

		account.ID = id.String()
	}

	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}

	query := `
		INSERT INTO accounts (id, email, is_admin, status, quota_granted, quota_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			is_admin = EXCLUDED.is_admin,
			status = EXCLUDED.status,
			quota_granted = EXCLUDED.quota_granted,
			quota_used = EXCLUDED.quota_used,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.IsAdmin, account.Status,
		account.QuotaGranted, account.QuotaUsed, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

// GetByID returns an account by its ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT
			id
		  , email
		  , is_admin
		  , status
		  , quota_granted
		  , quota_used
		  , created_at
		  , updated_at
		FROM accounts
		WHERE id = $1
	`

	account := &models.Account{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.Email, &account.IsAdmin, &account.Status,
		&account.QuotaGranted, &account.QuotaUsed, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	return account, nil
}

// ConsumeQuota increments the account's used message counter.
func (r *AccountRepository) ConsumeQuota(ctx context.Context, id string, amount int) error {
	query := `
		UPDATE accounts
		SET quota_used = quota_used + $1, updated_at = NOW()
		WHERE id = $2
	`

	return r.exec(ctx, query, amount, id)
}

// UpdateStatus sets the account status (used to pause an owner that
// exhausted their quota).
func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	query := `
		UPDATE accounts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	return r.exec(ctx, query, status, id)
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrAccountNotFound
	}

	return nil
}
