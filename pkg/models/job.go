package models

import (
	"time"
)

// JobStatus represents the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// DefaultMaxRetries bounds the retry envelope of a job.
const DefaultMaxRetries = 3

// RetryBackoffBase is the base delay applied on a retryable failure; the
// effective delay is 2^retry_count times this value.
const RetryBackoffBase = 60 * time.Second

// Job is one queued unit of graph execution, bound to a single node
// occurrence within one execution. Jobs only ever move
// pending -> processing -> {completed|failed}, or back to pending on a
// retryable failure with retry_count incremented.
type Job struct {
	ID           string         `json:"id"`
	OwnerID      string         `json:"owner_id"     validate:"required"`
	ExecutionID  string         `json:"execution_id" validate:"required"`
	NodeID       string         `json:"node_id"      validate:"required"`
	NodeType     NodeType       `json:"node_type"    validate:"required"`
	NodeData     map[string]any `json:"node_data"`
	Status       JobStatus      `json:"status"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RetryBackoff returns how far into the future the job must be rescheduled
// after its retry_count has been incremented.
func (j *Job) RetryBackoff() time.Duration {
	return (1 << j.RetryCount) * RetryBackoffBase
}

// RetriesExhausted reports whether the job has spent its retry budget.
func (j *Job) RetriesExhausted() bool {
	return j.RetryCount >= j.MaxRetries
}
