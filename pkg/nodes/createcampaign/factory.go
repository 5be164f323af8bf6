package createcampaign

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Factory creates create campaign node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new create campaign node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID, data, deps)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeCreateCampaign)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Create Campaign"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Creates a bulk campaign record, optionally scheduled, to be dispatched by the campaign subsystem"
}

// Schema returns the JSON schema for create campaign node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{
				"type":        "string",
				"description": "Campaign name. Supports {{key}} placeholders resolved from the execution context.",
			},
			"instance_id": map[string]any{
				"type":        "string",
				"description": "WhatsApp instance the campaign sends through.",
			},
			"contact_list_id": map[string]any{
				"type":        "string",
				"description": "Contact list the campaign targets.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message template. Personalized per contact at send time.",
			},
			"media_url": map[string]any{
				"type":        "string",
				"description": "Optional media to send after the text message.",
			},
			"media_caption": map[string]any{
				"type":        "string",
				"description": "Optional caption for the media message.",
			},
			"min_delay": map[string]any{
				"type":        "number",
				"description": "Lower bound of the random pause between contacts, in seconds.",
				"minimum":     0,
			},
			"max_delay": map[string]any{
				"type":        "number",
				"description": "Upper bound of the random pause between contacts, in seconds.",
				"minimum":     0,
			},
			"scheduled_at": map[string]any{
				"type":        "string",
				"description": "RFC3339 timestamp. When set the campaign is created scheduled instead of draft.",
			},
		},
		"required": []string{"name", "instance_id", "contact_list_id", "message"},
	}
}
