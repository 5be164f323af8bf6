// Package memory provides an in-memory persistence implementation used by
// unit tests and local development. It mirrors the semantics of the
// PostgreSQL implementation, including the conditional status transitions
// the engine relies on.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence keeps all state in mutex-guarded maps.
type Persistence struct {
	mu sync.Mutex

	flows      map[string]*models.Flow
	jobs       map[string]*models.Job
	executions map[string]*models.Execution
	campaigns  map[string]*models.Campaign
	lists      map[string]*models.ContactList
	contacts   map[string]*models.Contact
	instances  map[string]*models.Instance
	accounts   map[string]*models.Account
	eventLog   []*models.Event
}

// NewPersistence creates an empty in-memory persistence layer.
func NewPersistence() *Persistence {
	return &Persistence{
		flows:      make(map[string]*models.Flow),
		jobs:       make(map[string]*models.Job),
		executions: make(map[string]*models.Execution),
		campaigns:  make(map[string]*models.Campaign),
		lists:      make(map[string]*models.ContactList),
		contacts:   make(map[string]*models.Contact),
		instances:  make(map[string]*models.Instance),
		accounts:   make(map[string]*models.Account),
	}
}

func (p *Persistence) Flows() persistence.FlowRepository {
	return &flowRepository{p}
}

func (p *Persistence) Jobs() persistence.JobRepository {
	return &jobRepository{p}
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return &executionRepository{p}
}

func (p *Persistence) Campaigns() persistence.CampaignRepository {
	return &campaignRepository{p}
}

func (p *Persistence) Contacts() persistence.ContactRepository {
	return &contactRepository{p}
}

func (p *Persistence) Instances() persistence.InstanceRepository {
	return &instanceRepository{p}
}

func (p *Persistence) Accounts() persistence.AccountRepository {
	return &accountRepository{p}
}

func (p *Persistence) Events() persistence.EventRepository {
	return &eventRepository{p}
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (p *Persistence) Close(ctx context.Context) error {
	return nil
}

// EventLog returns a snapshot of the appended events, for test assertions.
func (p *Persistence) EventLog() []*models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := make([]*models.Event, len(p.eventLog))
	copy(log, p.eventLog)

	return log
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}

	return id.String()
}

type flowRepository struct{ p *Persistence }

func (r *flowRepository) Save(ctx context.Context, flow *models.Flow) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if flow.ID == "" {
		flow.ID = newID()
	}

	now := time.Now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	stored := *flow
	r.p.flows[flow.ID] = &stored

	return nil
}

func (r *flowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	flow, ok := r.p.flows[id]
	if !ok {
		return nil, persistence.ErrFlowNotFound
	}

	copied := *flow

	return &copied, nil
}

func (r *flowRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Flow, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	flows := make([]*models.Flow, 0)

	for _, flow := range r.p.flows {
		if flow.OwnerID == ownerID {
			copied := *flow
			flows = append(flows, &copied)
		}
	}

	sort.Slice(flows, func(i, j int) bool { return flows[i].CreatedAt.After(flows[j].CreatedAt) })

	return flows, nil
}

type jobRepository struct{ p *Persistence }

func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if job.ID == "" {
		job.ID = newID()
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

	stored := *job
	r.p.jobs[job.ID] = &stored

	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	job, ok := r.p.jobs[id]
	if !ok {
		return nil, persistence.ErrJobNotFound
	}

	copied := *job

	return &copied, nil
}

func (r *jobRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.Job, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	due := make([]*models.Job, 0)

	for _, job := range r.p.jobs {
		if job.Status == models.JobStatusPending && !job.ScheduledAt.After(now) {
			copied := *job
			due = append(due, &copied)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })

	if len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (r *jobRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.Job, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	jobs := make([]*models.Job, 0)

	for _, job := range r.p.jobs {
		if job.ExecutionID == executionID {
			copied := *job
			jobs = append(jobs, &copied)
		}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })

	return jobs, nil
}

func (r *jobRepository) Claim(ctx context.Context, id string) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	job, ok := r.p.jobs[id]
	if !ok {
		return false, nil
	}

	if job.Status != models.JobStatusPending {
		return false, nil
	}

	job.Status = models.JobStatusProcessing
	job.UpdatedAt = time.Now().UTC()

	return true, nil
}

func (r *jobRepository) MarkCompleted(ctx context.Context, id string, processedAt time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	job, ok := r.p.jobs[id]
	if !ok {
		return persistence.ErrJobNotFound
	}

	job.Status = models.JobStatusCompleted
	job.ProcessedAt = &processedAt
	job.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *jobRepository) ScheduleRetry(ctx context.Context, id string, retryCount int, scheduledAt time.Time, errorMessage string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	job, ok := r.p.jobs[id]
	if !ok {
		return persistence.ErrJobNotFound
	}

	job.Status = models.JobStatusPending
	job.RetryCount = retryCount
	job.ScheduledAt = scheduledAt
	job.ErrorMessage = errorMessage
	job.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *jobRepository) MarkFailed(ctx context.Context, id string, retryCount int, processedAt time.Time, errorMessage string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	job, ok := r.p.jobs[id]
	if !ok {
		return persistence.ErrJobNotFound
	}

	job.Status = models.JobStatusFailed
	job.RetryCount = retryCount
	job.ProcessedAt = &processedAt
	job.ErrorMessage = errorMessage
	job.UpdatedAt = time.Now().UTC()

	return nil
}

type executionRepository struct{ p *Persistence }

func (r *executionRepository) Create(ctx context.Context, execution *models.Execution) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if execution.ID == "" {
		execution.ID = newID()
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

	stored := *execution
	r.p.executions[execution.ID] = &stored

	return nil
}

func (r *executionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	copied := *execution

	return &copied, nil
}

func (r *executionRepository) UpdateContext(ctx context.Context, id string, execCtx models.ExecutionContext) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok {
		return persistence.ErrExecutionNotFound
	}

	execution.Context = execCtx

	return nil
}

func (r *executionRepository) MarkSuccess(ctx context.Context, id string, completedAt time.Time) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok || execution.Status != models.ExecutionStatusRunning {
		return persistence.ErrExecutionNotFound
	}

	execution.Status = models.ExecutionStatusSuccess
	execution.CompletedAt = &completedAt

	return nil
}

func (r *executionRepository) MarkFailed(ctx context.Context, id string, completedAt time.Time, errorMessage string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	execution, ok := r.p.executions[id]
	if !ok || execution.Status != models.ExecutionStatusRunning {
		return persistence.ErrExecutionNotFound
	}

	execution.Status = models.ExecutionStatusFailed
	execution.CompletedAt = &completedAt
	execution.ErrorMessage = errorMessage

	return nil
}

type campaignRepository struct{ p *Persistence }

func (r *campaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if campaign.ID == "" {
		campaign.ID = newID()
	}

	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	stored := *campaign
	r.p.campaigns[campaign.ID] = &stored

	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	campaign, ok := r.p.campaigns[id]
	if !ok {
		return nil, persistence.ErrCampaignNotFound
	}

	copied := *campaign

	return &copied, nil
}

func (r *campaignRepository) GetStatus(ctx context.Context, id string) (models.CampaignStatus, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	campaign, ok := r.p.campaigns[id]
	if !ok {
		return "", persistence.ErrCampaignNotFound
	}

	return campaign.Status, nil
}

func (r *campaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	due := make([]*models.Campaign, 0)

	for _, campaign := range r.p.campaigns {
		if campaign.Status == models.CampaignStatusScheduled &&
			campaign.ScheduledAt != nil && !campaign.ScheduledAt.After(now) {
			copied := *campaign
			due = append(due, &copied)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })

	return due, nil
}

func (r *campaignRepository) TransitionStatus(ctx context.Context, id string, from []models.CampaignStatus, to models.CampaignStatus) (bool, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	campaign, ok := r.p.campaigns[id]
	if !ok {
		return false, nil
	}

	for _, status := range from {
		if campaign.Status == status {
			campaign.Status = to
			campaign.UpdatedAt = time.Now().UTC()

			return true, nil
		}
	}

	return false, nil
}

type contactRepository struct{ p *Persistence }

func (r *contactRepository) SaveList(ctx context.Context, list *models.ContactList) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if list.ID == "" {
		list.ID = newID()
	}

	if list.CreatedAt.IsZero() {
		list.CreatedAt = time.Now().UTC()
	}

	stored := *list
	r.p.lists[list.ID] = &stored

	return nil
}

func (r *contactRepository) GetList(ctx context.Context, id string) (*models.ContactList, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	list, ok := r.p.lists[id]
	if !ok {
		return nil, persistence.ErrContactListNotFound
	}

	copied := *list

	return &copied, nil
}

func (r *contactRepository) SaveContact(ctx context.Context, contact *models.Contact) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if contact.ID == "" {
		contact.ID = newID()
	}

	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = time.Now().UTC()
	}

	stored := *contact
	r.p.contacts[contact.ID] = &stored

	return nil
}

func (r *contactRepository) ListByContactList(ctx context.Context, contactListID string) ([]*models.Contact, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	contacts := make([]*models.Contact, 0)

	for _, contact := range r.p.contacts {
		if contact.ContactListID == contactListID {
			copied := *contact
			contacts = append(contacts, &copied)
		}
	}

	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].CreatedAt.Equal(contacts[j].CreatedAt) {
			return contacts[i].ID < contacts[j].ID
		}

		return contacts[i].CreatedAt.Before(contacts[j].CreatedAt)
	})

	return contacts, nil
}

type instanceRepository struct{ p *Persistence }

func (r *instanceRepository) Save(ctx context.Context, instance *models.Instance) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if instance.ID == "" {
		instance.ID = newID()
	}

	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = time.Now().UTC()
	}

	stored := *instance
	r.p.instances[instance.ID] = &stored

	return nil
}

func (r *instanceRepository) GetByID(ctx context.Context, id string) (*models.Instance, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	instance, ok := r.p.instances[id]
	if !ok {
		return nil, persistence.ErrInstanceNotFound
	}

	copied := *instance

	return &copied, nil
}

type accountRepository struct{ p *Persistence }

func (r *accountRepository) Save(ctx context.Context, account *models.Account) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	now := time.Now().UTC()

	if account.ID == "" {
		account.ID = newID()
	}

	if account.Status == "" {
		account.Status = models.AccountStatusActive
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}

	account.UpdatedAt = now

	stored := *account
	r.p.accounts[account.ID] = &stored

	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	account, ok := r.p.accounts[id]
	if !ok {
		return nil, persistence.ErrAccountNotFound
	}

	copied := *account

	return &copied, nil
}

func (r *accountRepository) ConsumeQuota(ctx context.Context, id string, amount int) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	account, ok := r.p.accounts[id]
	if !ok {
		return persistence.ErrAccountNotFound
	}

	account.QuotaUsed += amount
	account.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *accountRepository) UpdateStatus(ctx context.Context, id string, status models.AccountStatus) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	account, ok := r.p.accounts[id]
	if !ok {
		return persistence.ErrAccountNotFound
	}

	account.Status = status
	account.UpdatedAt = time.Now().UTC()

	return nil
}

type eventRepository struct{ p *Persistence }

func (r *eventRepository) Append(ctx context.Context, event *models.Event) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	if event.ID == "" {
		event.ID = newID()
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	stored := *event
	r.p.eventLog = append(r.p.eventLog, &stored)

	return nil
}
