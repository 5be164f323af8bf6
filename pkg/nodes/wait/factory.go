package wait

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Factory creates wait node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new wait node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID, data, deps)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeWait)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Wait"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Suspends the flow for a configured duration before continuing to the next nodes"
}

// Schema returns the JSON schema for wait node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":             "number",
				"description":      "How long to wait, in the configured unit.",
				"exclusiveMinimum": 0,
			},
			"unit": map[string]any{
				"type":        "string",
				"description": "Duration unit",
				"enum":        []string{"seconds", "minutes", "hours"},
				"default":     "seconds",
			},
		},
		"required": []string{"duration"},
	}
}
