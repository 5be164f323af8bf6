// Package web provides the HTTP API for flows, executions, campaigns and
// the trigger endpoints that drive the engine.
package web

import "github.com/betoarts/masszap/pkg/models"

// CreateFlowRequest is the request body for saving a flow graph.
type CreateFlowRequest struct {
	OwnerID string             `json:"owner_id" validate:"required"`
	Name    string             `json:"name"     validate:"required,min=3"`
	Nodes   []*models.FlowNode `json:"nodes"    validate:"required,min=1,dive"`
	Edges   []*models.FlowEdge `json:"edges"    validate:"dive"`
}

// StartExecutionRequest is the request body for starting a flow execution.
// Context seeds the execution context; trigger payloads (e.g. the contact
// that fired an automation) go here.
type StartExecutionRequest struct {
	OwnerID string                  `json:"owner_id" validate:"required"`
	Context models.ExecutionContext `json:"context,omitempty"`
}

// StartExecutionResponse returns the ID of the created execution.
type StartExecutionResponse struct {
	ExecutionID string `json:"execution_id"`
}

// TriggerResponse reports how many items one trigger invocation handled.
// Trigger endpoints are idempotent: re-invoking them never double-processes
// a job or a campaign.
type TriggerResponse struct {
	Processed int `json:"processed"`
}
