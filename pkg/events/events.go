// Package events defines lifecycle event types emitted by the execution
// engine. Events are appended to the event log and published on the event
// bus for external subscribers; the engine never reads them back.
package events

import (
	"time"
)

type EventType string

// Bus topic for all engine events.
const Topic = "masszap.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"

	// Job lifecycle events.
	JobCompletedEvent EventType = "job.completed"
	JobRetriedEvent   EventType = "job.retried"
	JobFailedEvent    EventType = "job.failed"

	// Campaign lifecycle events.
	CampaignStartedEvent   EventType = "campaign.started"
	CampaignCompletedEvent EventType = "campaign.completed"
	CampaignStoppedEvent   EventType = "campaign.stopped"
	CampaignFailedEvent    EventType = "campaign.failed"

	// Per-contact campaign send events.
	MessageSentEvent   EventType = "message_sent"
	MessageFailedEvent EventType = "message_failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	OwnerID   string         `json:"owner_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FlowID      string `json:"flow_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	FlowID      string        `json:"flow_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	FlowID      string `json:"flow_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type JobCompleted struct {
	BaseEvent

	JobID       string `json:"job_id"`
	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
}

func (e JobCompleted) GetType() EventType {
	return JobCompletedEvent
}

type JobRetried struct {
	BaseEvent

	JobID       string    `json:"job_id"`
	ExecutionID string    `json:"execution_id"`
	NodeID      string    `json:"node_id"`
	RetryCount  int       `json:"retry_count"`
	NextAttempt time.Time `json:"next_attempt"`
	Error       string    `json:"error"`
}

func (e JobRetried) GetType() EventType {
	return JobRetriedEvent
}

type JobFailed struct {
	BaseEvent

	JobID       string `json:"job_id"`
	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	Error       string `json:"error"`
}

func (e JobFailed) GetType() EventType {
	return JobFailedEvent
}

type CampaignStarted struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
	Contacts   int    `json:"contacts"`
}

func (e CampaignStarted) GetType() EventType {
	return CampaignStartedEvent
}

type CampaignCompleted struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
}

func (e CampaignCompleted) GetType() EventType {
	return CampaignCompletedEvent
}

type CampaignStopped struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
	Sent       int    `json:"sent"`
	Remaining  int    `json:"remaining"`
}

func (e CampaignStopped) GetType() EventType {
	return CampaignStoppedEvent
}

type CampaignFailed struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
	Error      string `json:"error"`
}

func (e CampaignFailed) GetType() EventType {
	return CampaignFailedEvent
}

type MessageSent struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
	ContactID  string `json:"contact_id"`
	Phone      string `json:"phone"`
}

func (e MessageSent) GetType() EventType {
	return MessageSentEvent
}

type MessageFailed struct {
	BaseEvent

	CampaignID string `json:"campaign_id"`
	ContactID  string `json:"contact_id"`
	Phone      string `json:"phone"`
	Error      string `json:"error"`
}

func (e MessageFailed) GetType() EventType {
	return MessageFailedEvent
}
