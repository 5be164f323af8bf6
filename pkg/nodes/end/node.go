// Package end provides the terminal node executor.
package end

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/protocol"
)

// Node finalizes the owning execution as successful. It emits no successor
// jobs.
type Node struct {
	id     string
	deps   protocol.Dependencies
	logger *slog.Logger
}

// NewNode creates a new end node executor.
func NewNode(id string, deps protocol.Dependencies) *Node {
	return &Node{
		id:     id,
		deps:   deps,
		logger: deps.Logger.With("node_id", id, "node_type", "end"),
	}
}

// Execute marks the execution as successfully completed.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	completedAt := time.Now().UTC()

	err := n.deps.Persistence.Executions().MarkSuccess(ctx, step.Execution.ID, completedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize execution: %w", err)
	}

	n.logger.InfoContext(ctx, "Execution completed", "execution_id", step.Execution.ID)

	return &protocol.Result{
		Output: map[string]any{
			"completed_at": completedAt.Format(time.RFC3339),
		},
	}, nil
}
