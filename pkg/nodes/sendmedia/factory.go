package sendmedia

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Factory creates send media node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new send media node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID, data, deps)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeSendMedia)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Send Media"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Sends an image, video, audio or document to the contact, with an optional personalized caption"
}

// Schema returns the JSON schema for send media node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"media_url": map[string]any{
				"type":        "string",
				"description": "Public URL of the media file. The media type is inferred from the extension.",
			},
			"caption": map[string]any{
				"type":        "string",
				"description": "Optional caption. Supports {{key}} placeholders resolved from the execution context.",
			},
			"instance_id": map[string]any{
				"type":        "string",
				"description": "WhatsApp instance to send through. Falls back to the execution context instance_id.",
			},
		},
		"required": []string{"media_url"},
	}
}
