// Package start provides the entry point node. It carries no behavior;
// executions begin at its successors. The executor exists so a start job,
// should one ever be enqueued, passes through harmlessly.
package start

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Node is the flow entry point.
type Node struct {
	id string
}

// NewNode creates a new start node executor.
func NewNode(id string) *Node {
	return &Node{id: id}
}

// Execute succeeds without side effects.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	return &protocol.Result{}, nil
}

// Factory creates start node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new start node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID), nil
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeStart)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Start"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Entry point of the flow"
}

// Schema returns the JSON schema for start node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
