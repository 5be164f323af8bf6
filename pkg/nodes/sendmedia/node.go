// Package sendmedia provides the media message node executor.
package sendmedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/betoarts/masszap/pkg/nodes/sendmessage"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/betoarts/masszap/pkg/template"
	"github.com/betoarts/masszap/pkg/whatsapp"
)

// Node sends a media message with an optional personalized caption.
type Node struct {
	id         string
	mediaURL   string
	caption    string
	instanceID string
	client     *whatsapp.Client
	deps       protocol.Dependencies
	logger     *slog.Logger
}

// NewNode creates a new send media node executor.
func NewNode(id string, data map[string]any, deps protocol.Dependencies) (*Node, error) {
	mediaURL, ok := data["media_url"].(string)
	if !ok || mediaURL == "" {
		return nil, errors.New("missing required field 'media_url'")
	}

	caption, _ := data["caption"].(string)
	instanceID, _ := data["instance_id"].(string)

	return &Node{
		id:         id,
		mediaURL:   mediaURL,
		caption:    caption,
		instanceID: instanceID,
		client:     deps.WhatsApp,
		deps:       deps,
		logger:     deps.Logger.With("node_id", id, "node_type", "send_media"),
	}, nil
}

// Execute sends the media to the contact's phone with the rendered caption.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	instance, phone, err := sendmessage.ResolveDelivery(ctx, n.deps, step, n.instanceID)
	if err != nil {
		return nil, err
	}

	caption := template.RenderContext(n.caption, step.Execution.Context)

	err = n.client.SendMedia(ctx, instance, phone, n.mediaURL, caption)
	if err != nil {
		return nil, fmt.Errorf("failed to send media: %w", err)
	}

	n.logger.InfoContext(ctx, "Media sent", "phone", phone, "media_url", n.mediaURL)

	return &protocol.Result{
		Output: map[string]any{
			"media_url":  n.mediaURL,
			"media_type": whatsapp.MediaTypeFromURL(n.mediaURL),
			"caption":    caption,
			"phone":      phone,
		},
	}, nil
}
