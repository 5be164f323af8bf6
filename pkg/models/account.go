package models

import (
	"time"
)

// AccountStatus represents the state of an owner account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusPaused AccountStatus = "paused"
)

// Account is the owner record the quota service consults before campaign
// runs. Administrators are exempt from the message quota.
type Account struct {
	ID           string        `json:"id"`
	Email        string        `json:"email" validate:"required,email"`
	IsAdmin      bool          `json:"is_admin"`
	Status       AccountStatus `json:"status"`
	QuotaGranted int           `json:"quota_granted"`
	QuotaUsed    int           `json:"quota_used"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// QuotaRemaining returns how many messages the account may still send.
func (a *Account) QuotaRemaining() int {
	return a.QuotaGranted - a.QuotaUsed
}
