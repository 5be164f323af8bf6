package condition

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Factory creates condition node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new condition node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID, data, deps)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeCondition)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Condition"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Evaluates a boolean expression against the execution context and follows the true or false branch"
}

// Schema returns the JSON schema for condition node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Boolean expression over execution context fields.",
				"examples": []string{
					"context.age > 18",
					"context.contact.cidade == 'Recife' && context.opt_in == true",
				},
			},
		},
		"required": []string{"expression"},
	}
}
