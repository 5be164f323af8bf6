// Package quota enforces per-account message quotas. Admin accounts are
// exempt. A Redis counter mirrors consumption for cheap dashboard reads;
// the database remains the source of truth.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

// ErrQuotaExceeded indicates the account has no messages left.
var ErrQuotaExceeded = errors.New("message quota exceeded")

const counterTTL = 48 * time.Hour

// Service checks and consumes account quotas.
type Service struct {
	accounts persistence.AccountRepository
	cache    redis.UniversalClient
	logger   *slog.Logger
}

// NewService creates a quota service. The cache client is optional and may
// be nil.
func NewService(accounts persistence.AccountRepository, cache redis.UniversalClient, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		cache:    cache,
		logger:   logger.With("module", "quota"),
	}
}

// Remaining returns how many messages the account may still send. Admin
// accounts report math.MaxInt.
func (s *Service) Remaining(ctx context.Context, accountID string) (int, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to load account: %w", err)
	}

	if account.IsAdmin {
		return math.MaxInt, nil
	}

	return account.QuotaRemaining(), nil
}

// Check returns ErrQuotaExceeded when the account cannot send any more
// messages. Admin accounts always pass.
func (s *Service) Check(ctx context.Context, accountID string) error {
	remaining, err := s.Remaining(ctx, accountID)
	if err != nil {
		return err
	}

	if remaining <= 0 {
		return ErrQuotaExceeded
	}

	return nil
}

// Consume records the given number of sent messages against the account.
// Admin accounts are not charged.
func (s *Service) Consume(ctx context.Context, accountID string, amount int) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if account.IsAdmin {
		return nil
	}

	err = s.accounts.ConsumeQuota(ctx, accountID, amount)
	if err != nil {
		return fmt.Errorf("failed to consume quota: %w", err)
	}

	s.incrementCounter(ctx, accountID, amount)

	return nil
}

// PauseAccount marks the account as paused after its quota ran out.
func (s *Service) PauseAccount(ctx context.Context, accountID string) error {
	err := s.accounts.UpdateStatus(ctx, accountID, models.AccountStatusPaused)
	if err != nil {
		return fmt.Errorf("failed to pause account: %w", err)
	}

	s.logger.WarnContext(ctx, "Account paused after exceeding quota", "account_id", accountID)

	return nil
}

func (s *Service) incrementCounter(ctx context.Context, accountID string, amount int) {
	if s.cache == nil {
		return
	}

	key := counterKey(accountID, time.Now().UTC())

	err := s.cache.IncrBy(ctx, key, int64(amount)).Err()
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to update quota counter cache", "account_id", accountID, "error", err)

		return
	}

	s.cache.Expire(ctx, key, counterTTL)
}

// SentToday reads the cached daily counter. It returns 0 when the cache is
// unavailable or has no entry.
func (s *Service) SentToday(ctx context.Context, accountID string) int64 {
	if s.cache == nil {
		return 0
	}

	count, err := s.cache.Get(ctx, counterKey(accountID, time.Now().UTC())).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "Failed to read quota counter cache", "account_id", accountID, "error", err)
		}

		return 0
	}

	return count
}

func counterKey(accountID string, day time.Time) string {
	return "masszap:quota:" + accountID + ":" + day.Format("2006-01-02")
}
