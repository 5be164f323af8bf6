package createcampaign

import (
	"log/slog"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence/memory"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func campaignData() map[string]any {
	return map[string]any{
		"name":            "Promoção {{primeiro_nome}}",
		"instance_id":     "inst-1",
		"contact_list_id": "list-1",
		"message":         "Oferta especial!",
		"min_delay":       float64(5),
		"max_delay":       float64(15),
	}
}

func campaignStep() *protocol.Step {
	return &protocol.Step{
		Job: &models.Job{ID: "job1", OwnerID: "owner-1", ExecutionID: "exec1", NodeID: "camp1"},
		Execution: &models.Execution{
			ID:      "exec1",
			Context: models.ExecutionContext{"primeiro_nome": "Ana"},
		},
	}
}

func TestNode_ExecuteCreatesDraftCampaign(t *testing.T) {
	p := memory.NewPersistence()
	deps := protocol.Dependencies{Persistence: p, Logger: slog.Default()}

	node, err := NewNode("camp1", campaignData(), deps)
	require.NoError(t, err)

	result, err := node.Execute(t.Context(), campaignStep())
	require.NoError(t, err)

	campaignID, _ := result.Output["campaign_id"].(string)
	require.NotEmpty(t, campaignID)

	campaign, err := p.Campaigns().GetByID(t.Context(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", campaign.OwnerID)
	assert.Equal(t, "Promoção Ana", campaign.Name)
	assert.Equal(t, models.CampaignStatusDraft, campaign.Status)
	assert.Equal(t, 5, campaign.MinDelay)
	assert.Equal(t, 15, campaign.MaxDelay)
	assert.Nil(t, campaign.ScheduledAt)
}

func TestNode_ExecuteCreatesScheduledCampaign(t *testing.T) {
	p := memory.NewPersistence()
	deps := protocol.Dependencies{Persistence: p, Logger: slog.Default()}

	scheduledAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

	data := campaignData()
	data["scheduled_at"] = scheduledAt.Format(time.RFC3339)

	node, err := NewNode("camp1", data, deps)
	require.NoError(t, err)

	result, err := node.Execute(t.Context(), campaignStep())
	require.NoError(t, err)

	campaignID, _ := result.Output["campaign_id"].(string)
	campaign, err := p.Campaigns().GetByID(t.Context(), campaignID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusScheduled, campaign.Status)
	require.NotNil(t, campaign.ScheduledAt)
	assert.True(t, campaign.ScheduledAt.Equal(scheduledAt))
}

func TestNewNode_Validation(t *testing.T) {
	deps := protocol.Dependencies{Logger: slog.Default()}

	for _, missing := range []string{"name", "instance_id", "contact_list_id", "message"} {
		data := campaignData()
		delete(data, missing)

		_, err := NewNode("camp1", data, deps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), missing)
	}

	data := campaignData()
	data["scheduled_at"] = "amanhã"

	_, err := NewNode("camp1", data, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduled_at")
}
