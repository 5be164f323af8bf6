// Package createcampaign provides the campaign materialization node
// executor.
package createcampaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/betoarts/masszap/pkg/template"
)

// Node materializes a Campaign record from the node data. It never sends
// messages itself; the campaign subsystem picks the record up later.
type Node struct {
	id       string
	campaign models.Campaign
	deps     protocol.Dependencies
	logger   *slog.Logger
}

// NewNode creates a new create campaign node executor.
func NewNode(id string, data map[string]any, deps protocol.Dependencies) (*Node, error) {
	name, _ := data["name"].(string)
	if name == "" {
		return nil, errors.New("missing required field 'name'")
	}

	instanceID, _ := data["instance_id"].(string)
	if instanceID == "" {
		return nil, errors.New("missing required field 'instance_id'")
	}

	contactListID, _ := data["contact_list_id"].(string)
	if contactListID == "" {
		return nil, errors.New("missing required field 'contact_list_id'")
	}

	message, _ := data["message"].(string)
	if message == "" {
		return nil, errors.New("missing required field 'message'")
	}

	campaign := models.Campaign{
		InstanceID:    instanceID,
		ContactListID: contactListID,
		Name:          name,
		Message:       message,
		Status:        models.CampaignStatusDraft,
	}

	campaign.MediaURL, _ = data["media_url"].(string)
	campaign.MediaCaption, _ = data["media_caption"].(string)

	if minDelay, ok := numberValue(data["min_delay"]); ok {
		campaign.MinDelay = int(minDelay)
	}

	if maxDelay, ok := numberValue(data["max_delay"]); ok {
		campaign.MaxDelay = int(maxDelay)
	}

	if raw, ok := data["scheduled_at"].(string); ok && raw != "" {
		scheduledAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduled_at: %w", err)
		}

		campaign.ScheduledAt = &scheduledAt
		campaign.Status = models.CampaignStatusScheduled
	}

	return &Node{
		id:       id,
		campaign: campaign,
		deps:     deps,
		logger:   deps.Logger.With("node_id", id, "node_type", "create_campaign"),
	}, nil
}

// Execute saves the campaign for the execution's owner.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	campaign := n.campaign
	campaign.OwnerID = step.Job.OwnerID
	campaign.Name = template.RenderContext(campaign.Name, step.Execution.Context)

	err := n.deps.Persistence.Campaigns().Save(ctx, &campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	n.logger.InfoContext(ctx, "Campaign created", "campaign_id", campaign.ID, "status", campaign.Status)

	return &protocol.Result{
		Output: map[string]any{
			"campaign_id": campaign.ID,
			"status":      string(campaign.Status),
		},
	}, nil
}

func numberValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
