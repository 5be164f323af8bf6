package models

import (
	"time"
)

// CampaignStatus represents the lifecycle state of a bulk-send campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusRunning   CampaignStatus = "running"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusFailed    CampaignStatus = "failed"
	CampaignStatusStopped   CampaignStatus = "stopped"
)

// Campaign is an independent bulk-send unit targeting one contact list via
// one messaging instance. The dispatcher re-reads Status before every send;
// any status other than running/scheduled observed mid-loop is an external
// stop signal.
type Campaign struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"        validate:"required"`
	InstanceID    string         `json:"instance_id"     validate:"required"`
	ContactListID string         `json:"contact_list_id" validate:"required"`
	Name          string         `json:"name"            validate:"required"`
	Message       string         `json:"message"         validate:"required"`
	MediaURL      string         `json:"media_url,omitempty"`
	MediaCaption  string         `json:"media_caption,omitempty"`
	MinDelay      int            `json:"min_delay"` // seconds between contacts, lower bound
	MaxDelay      int            `json:"max_delay"` // seconds between contacts, upper bound
	ScheduledAt   *time.Time     `json:"scheduled_at,omitempty"`
	Status        CampaignStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Sendable reports whether the dispatcher may keep sending under the given
// observed status.
func (c *Campaign) Sendable(status CampaignStatus) bool {
	return status == CampaignStatusRunning || status == CampaignStatusScheduled
}
