package end

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Factory creates end node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new end node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID, deps), nil
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeEnd)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "End"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Finalizes the execution successfully"
}

// Schema returns the JSON schema for end node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
