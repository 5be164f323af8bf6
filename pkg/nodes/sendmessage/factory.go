package sendmessage

import (
	"context"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
)

// Factory creates send message node executors.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.NodeFactory {
	return &Factory{}
}

// Create creates a new send message node executor.
func (f *Factory) Create(ctx context.Context, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	return NewNode(nodeID, data, deps)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return string(models.NodeTypeSendMessage)
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "Send Message"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Sends a personalized WhatsApp text message to the contact in the execution context"
}

// Schema returns the JSON schema for send message node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message text. Supports {{key}} placeholders resolved from the execution context.",
				"examples": []string{
					"Olá {{primeiro_nome}}, tudo bem?",
					"{{nome_completo}}, sua encomenda chegou!",
				},
			},
			"instance_id": map[string]any{
				"type":        "string",
				"description": "WhatsApp instance to send through. Falls back to the execution context instance_id.",
			},
		},
		"required": []string{"message"},
	}
}
