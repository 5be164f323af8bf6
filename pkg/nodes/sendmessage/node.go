// Package sendmessage provides the text message node executor.
package sendmessage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/betoarts/masszap/pkg/template"
	"github.com/betoarts/masszap/pkg/whatsapp"
)

// Node sends a personalized text message through the owner's WhatsApp
// instance.
type Node struct {
	id         string
	message    string
	instanceID string
	client     *whatsapp.Client
	deps       protocol.Dependencies
	logger     *slog.Logger
}

// NewNode creates a new send message node executor.
func NewNode(id string, data map[string]any, deps protocol.Dependencies) (*Node, error) {
	message, ok := data["message"].(string)
	if !ok || message == "" {
		return nil, errors.New("missing required field 'message'")
	}

	instanceID, _ := data["instance_id"].(string)

	return &Node{
		id:         id,
		message:    message,
		instanceID: instanceID,
		client:     deps.WhatsApp,
		deps:       deps,
		logger:     deps.Logger.With("node_id", id, "node_type", "send_message"),
	}, nil
}

// Execute renders the message template against the execution context and
// sends it to the contact's phone.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	instance, phone, err := ResolveDelivery(ctx, n.deps, step, n.instanceID)
	if err != nil {
		return nil, err
	}

	rendered := template.RenderContext(n.message, step.Execution.Context)

	err = n.client.SendText(ctx, instance, phone, rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	n.logger.InfoContext(ctx, "Message sent", "phone", phone)

	return &protocol.Result{
		Output: map[string]any{
			"message": rendered,
			"phone":   phone,
		},
	}, nil
}

// ResolveDelivery resolves the WhatsApp instance and destination phone for a
// delivery node. The instance comes from the node data when configured, from
// the execution context otherwise, and must belong to the job's owner.
func ResolveDelivery(ctx context.Context, deps protocol.Dependencies, step *protocol.Step, instanceID string) (*models.Instance, string, error) {
	if instanceID == "" {
		instanceID = models.StringValue(step.Execution.Context["instance_id"])
	}

	if instanceID == "" {
		return nil, "", errors.New("no instance configured for delivery")
	}

	instance, err := deps.Persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load instance: %w", err)
	}

	if instance.OwnerID != step.Job.OwnerID {
		return nil, "", errors.New("instance does not belong to the execution owner")
	}

	phoneValue, ok := step.Execution.Context.Lookup("contact.phone")
	if !ok {
		return nil, "", errors.New("execution context has no contact phone")
	}

	phone := models.StringValue(phoneValue)
	if phone == "" {
		return nil, "", errors.New("execution context has no contact phone")
	}

	return instance, phone, nil
}
