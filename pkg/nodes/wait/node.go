// Package wait provides the delay node executor.
package wait

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Node pushes the flow's continuation into the future. It enqueues its
// successor jobs itself with scheduled_at set past the delay, which is why
// the engine excludes wait nodes from automatic fan-out.
type Node struct {
	id     string
	delay  time.Duration
	deps   protocol.Dependencies
	logger *slog.Logger
}

// NewNode creates a new wait node executor.
func NewNode(id string, data map[string]any, deps protocol.Dependencies) (*Node, error) {
	duration, ok := numberValue(data["duration"])
	if !ok || duration <= 0 {
		return nil, errors.New("missing required field 'duration'")
	}

	unit, _ := data["unit"].(string)
	if unit == "" {
		unit = "seconds"
	}

	var delay time.Duration

	switch unit {
	case "seconds":
		delay = time.Duration(duration * float64(time.Second))
	case "minutes":
		delay = time.Duration(duration * float64(time.Minute))
	case "hours":
		delay = time.Duration(duration * float64(time.Hour))
	default:
		return nil, fmt.Errorf("unsupported unit %q", unit)
	}

	return &Node{
		id:     id,
		delay:  delay,
		deps:   deps,
		logger: deps.Logger.With("node_id", id, "node_type", "wait"),
	}, nil
}

// Execute enqueues one pending job per outgoing edge, scheduled after the
// configured delay.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	resumeAt := time.Now().UTC().Add(n.delay)

	for _, edge := range step.Flow.EdgesFrom(step.Job.NodeID, "") {
		target := step.Flow.NodeByID(edge.Target)
		if target == nil {
			return nil, fmt.Errorf("edge %s points at unknown node %s", edge.ID, edge.Target)
		}

		job := &models.Job{
			OwnerID:     step.Job.OwnerID,
			ExecutionID: step.Job.ExecutionID,
			NodeID:      target.ID,
			NodeType:    target.Type,
			NodeData:    target.Data,
			ScheduledAt: resumeAt,
		}

		err := n.deps.Persistence.Jobs().Create(ctx, job)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue successor job: %w", err)
		}
	}

	n.logger.InfoContext(ctx, "Flow suspended", "resume_at", resumeAt)

	return &protocol.Result{
		Output: map[string]any{
			"resume_at": resumeAt.Format(time.RFC3339),
		},
	}, nil
}

func numberValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
