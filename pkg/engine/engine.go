// Package engine runs flow executions as persisted jobs. All forward
// progress happens inside short-lived, externally triggered invocations:
// StartExecution seeds the first jobs, ProcessDueJobs advances whatever is
// due.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/betoarts/masszap/pkg/eventbus"
	"github.com/betoarts/masszap/pkg/events"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// JobBatchSize caps how many due jobs one poller invocation processes.
const JobBatchSize = 10

var (
	ErrOwnershipMismatch  = errors.New("flow does not belong to owner")
	ErrNoStartNode        = errors.New("flow has no start node")
	ErrMultipleStartNodes = errors.New("flow has multiple start nodes")
	ErrInvalidNode        = errors.New("invalid node")
)

// Engine validates flows, creates executions and processes their jobs.
type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	deps        protocol.Dependencies
	tracer      trace.Tracer
	logger      *slog.Logger
}

// New creates an engine. The event bus is optional; a nil bus keeps events
// in the persisted event log only.
func New(p persistence.Persistence, reg *registry.Registry, bus eventbus.EventBus, client *whatsapp.Client, logger *slog.Logger) *Engine {
	engineLogger := logger.With("module", "engine")

	return &Engine{
		persistence: p,
		registry:    reg,
		eventBus:    bus,
		deps: protocol.Dependencies{
			Persistence: p,
			WhatsApp:    client,
			HTTPClient:  &http.Client{Timeout: 30 * time.Second},
			Logger:      engineLogger,
		},
		tracer: otel.Tracer("masszap.engine"),
		logger: engineLogger,
	}
}

// StartExecution validates the flow and creates an execution with one
// pending job per start node successor. The returned ID can be polled
// through the execution repository.
func (e *Engine) StartExecution(ctx context.Context, flowID, ownerID string, initialContext models.ExecutionContext) (string, error) {
	flow, err := e.persistence.Flows().GetByID(ctx, flowID)
	if err != nil {
		return "", fmt.Errorf("failed to load flow: %w", err)
	}

	if flow.OwnerID != ownerID {
		return "", ErrOwnershipMismatch
	}

	err = e.validateFlow(flow)
	if err != nil {
		return "", err
	}

	if initialContext == nil {
		initialContext = models.ExecutionContext{}
	}

	execution := &models.Execution{
		OwnerID: ownerID,
		FlowID:  flow.ID,
		Context: initialContext,
	}

	err = e.persistence.Executions().Create(ctx, execution)
	if err != nil {
		return "", fmt.Errorf("failed to create execution: %w", err)
	}

	// An execution without jobs is inert, so seeding jobs after the
	// execution insert is safe even if this step fails halfway.
	startNode := flow.StartNode()

	err = e.enqueueSuccessors(ctx, flow, execution, startNode.ID, "", time.Now().UTC())
	if err != nil {
		return "", err
	}

	e.publish(ctx, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, ownerID),
		ExecutionID: execution.ID,
		FlowID:      flow.ID,
	})

	e.logger.InfoContext(ctx, "Execution started", "execution_id", execution.ID, "flow_id", flow.ID)

	return execution.ID, nil
}

func (e *Engine) validateFlow(flow *models.Flow) error {
	startNodes := 0

	for _, node := range flow.Nodes {
		if node.Type == models.NodeTypeStart {
			startNodes++
		}

		err := e.registry.ValidateNodeData(string(node.Type), node.Data)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrInvalidNode, node.ID, err)
		}
	}

	if startNodes == 0 {
		return ErrNoStartNode
	}

	if startNodes > 1 {
		return ErrMultipleStartNodes
	}

	return nil
}

// enqueueSuccessors creates one pending job per outgoing edge of the given
// node, restricted to the handle when one is set.
func (e *Engine) enqueueSuccessors(ctx context.Context, flow *models.Flow, execution *models.Execution, nodeID, handle string, scheduledAt time.Time) error {
	for _, edge := range flow.EdgesFrom(nodeID, handle) {
		target := flow.NodeByID(edge.Target)
		if target == nil {
			return fmt.Errorf("edge %s points at unknown node %s", edge.ID, edge.Target)
		}

		job := &models.Job{
			OwnerID:     execution.OwnerID,
			ExecutionID: execution.ID,
			NodeID:      target.ID,
			NodeType:    target.Type,
			NodeData:    target.Data,
			ScheduledAt: scheduledAt,
		}

		err := e.persistence.Jobs().Create(ctx, job)
		if err != nil {
			return fmt.Errorf("failed to enqueue job for node %s: %w", target.ID, err)
		}
	}

	return nil
}

func (e *Engine) baseEvent(eventType events.EventType, ownerID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        e.generateEventID(),
		Type:      eventType,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *Engine) generateEventID() string {
	if e.eventBus != nil {
		return e.eventBus.GenerateID()
	}

	return ""
}
