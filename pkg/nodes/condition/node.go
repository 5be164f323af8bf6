// Package condition provides the branching node executor.
package condition

import (
	"context"
	"errors"
	"log/slog"

	"github.com/betoarts/masszap/pkg/condition"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Node evaluates a boolean expression against the execution context and
// reports which branch handle to follow. Evaluation errors pick the false
// branch instead of failing the job, keeping the graph interpreter total.
type Node struct {
	id         string
	expression string
	logger     *slog.Logger
}

// NewNode creates a new condition node executor.
func NewNode(id string, data map[string]any, deps protocol.Dependencies) (*Node, error) {
	expression, ok := data["expression"].(string)
	if !ok || expression == "" {
		return nil, errors.New("missing required field 'expression'")
	}

	return &Node{
		id:         id,
		expression: expression,
		logger:     deps.Logger.With("node_id", id, "node_type", "condition"),
	}, nil
}

// Execute evaluates the expression and returns the "true" or "false" handle.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	result, err := condition.Evaluate(n.expression, step.Execution.Context)
	if err != nil {
		n.logger.WarnContext(ctx, "Condition evaluation failed, taking false branch",
			"expression", n.expression, "error", err)

		result = false
	}

	handle := "false"
	if result {
		handle = "true"
	}

	return &protocol.Result{
		Output: map[string]any{
			"expression": n.expression,
			"result":     result,
		},
		Handle: handle,
	}, nil
}
