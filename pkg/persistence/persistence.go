// Package persistence provides the data storage abstraction for the
// execution engine. All engine state lives behind these interfaces; the
// engine itself holds nothing in memory between invocations.
package persistence

import (
	"context"
	"time"

	"github.com/betoarts/masszap/pkg/models"
)

// FlowRepository stores flow graphs. Flows are authored externally and are
// read-only from the engine's point of view.
type FlowRepository interface {
	Save(ctx context.Context, flow *models.Flow) error
	GetByID(ctx context.Context, id string) (*models.Flow, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Flow, error)
}

// JobRepository stores queued units of graph execution. Claim is the sole
// concurrency gate between concurrent poller invocations: it atomically
// moves a job pending -> processing and reports whether this caller won.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Job, error)
	ListByExecution(ctx context.Context, executionID string) ([]*models.Job, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string, processedAt time.Time) error
	ScheduleRetry(ctx context.Context, id string, retryCount int, scheduledAt time.Time, errorMessage string) error
	MarkFailed(ctx context.Context, id string, retryCount int, processedAt time.Time, errorMessage string) error
}

// ExecutionRepository stores flow runs and their mutable contexts.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	UpdateContext(ctx context.Context, id string, execCtx models.ExecutionContext) error
	MarkSuccess(ctx context.Context, id string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id string, completedAt time.Time, errorMessage string) error
}

// CampaignRepository stores bulk-send campaigns. TransitionStatus performs
// a conditional update and reports whether the transition happened, so the
// dispatcher can both flip scheduled -> running and respect external stop
// signals without racing.
type CampaignRepository interface {
	Save(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	GetStatus(ctx context.Context, id string) (models.CampaignStatus, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error)
	TransitionStatus(ctx context.Context, id string, from []models.CampaignStatus, to models.CampaignStatus) (bool, error)
}

// ContactRepository reads campaign recipients.
type ContactRepository interface {
	SaveList(ctx context.Context, list *models.ContactList) error
	GetList(ctx context.Context, id string) (*models.ContactList, error)
	SaveContact(ctx context.Context, contact *models.Contact) error
	ListByContactList(ctx context.Context, contactListID string) ([]*models.Contact, error)
}

// InstanceRepository reads provider credential bindings.
type InstanceRepository interface {
	Save(ctx context.Context, instance *models.Instance) error
	GetByID(ctx context.Context, id string) (*models.Instance, error)
}

// AccountRepository stores owner accounts and their message quotas.
type AccountRepository interface {
	Save(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	ConsumeQuota(ctx context.Context, id string, amount int) error
	UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error
}

// EventRepository appends to the event log.
type EventRepository interface {
	Append(ctx context.Context, event *models.Event) error
}

// Persistence aggregates every repository over one backing store.
type Persistence interface {
	Flows() FlowRepository
	Jobs() JobRepository
	Executions() ExecutionRepository
	Campaigns() CampaignRepository
	Contacts() ContactRepository
	Instances() InstanceRepository
	Accounts() AccountRepository
	Events() EventRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
