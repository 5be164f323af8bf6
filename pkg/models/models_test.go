package models_test

import (
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowStartNode(t *testing.T) {
	flow := &models.Flow{
		Nodes: []*models.FlowNode{
			{ID: "n1", Type: models.NodeTypeSendMessage},
			{ID: "n0", Type: models.NodeTypeStart},
		},
	}

	start := flow.StartNode()
	require.NotNil(t, start)
	assert.Equal(t, "n0", start.ID)

	empty := &models.Flow{}
	assert.Nil(t, empty.StartNode())
}

func TestFlowEdgesFrom(t *testing.T) {
	flow := &models.Flow{
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "cond", Target: "a", SourceHandle: "true"},
			{ID: "e2", Source: "cond", Target: "b", SourceHandle: "false"},
			{ID: "e3", Source: "other", Target: "c"},
		},
	}

	trueEdges := flow.EdgesFrom("cond", "true")
	require.Len(t, trueEdges, 1)
	assert.Equal(t, "a", trueEdges[0].Target)

	// No handle filter: every outgoing edge fans out.
	all := flow.EdgesFrom("cond", "")
	assert.Len(t, all, 2)

	assert.Empty(t, flow.EdgesFrom("missing", ""))
}

func TestJobRetryBackoff(t *testing.T) {
	job := &models.Job{RetryCount: 1, MaxRetries: models.DefaultMaxRetries}
	assert.Equal(t, 2*time.Minute, job.RetryBackoff())

	job.RetryCount = 2
	assert.Equal(t, 4*time.Minute, job.RetryBackoff())

	assert.False(t, job.RetriesExhausted())

	job.RetryCount = 3
	assert.True(t, job.RetriesExhausted())
}

func TestExecutionContextLookup(t *testing.T) {
	ctx := models.ExecutionContext{
		"age":  float64(20),
		"name": "Maria",
		"contact": map[string]any{
			"city": "Recife",
		},
	}

	value, ok := ctx.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, float64(20), value)

	value, ok = ctx.Lookup("contact.city")
	require.True(t, ok)
	assert.Equal(t, "Recife", value)

	_, ok = ctx.Lookup("contact.zip")
	assert.False(t, ok)

	_, ok = ctx.Lookup("name.nested")
	assert.False(t, ok)
}

func TestStringValue(t *testing.T) {
	assert.Equal(t, "20", models.StringValue(float64(20)))
	assert.Equal(t, "1.5", models.StringValue(1.5))
	assert.Equal(t, "true", models.StringValue(true))
	assert.Equal(t, "oi", models.StringValue("oi"))
	assert.Equal(t, "", models.StringValue(nil))
}

func TestContactPersonalizationData(t *testing.T) {
	contact := &models.Contact{
		Phone:      "+5511999990000",
		FullName:   "Maria da Silva",
		CustomData: map[string]any{"pedido": "1234"},
	}

	data := contact.PersonalizationData()
	assert.Equal(t, "Maria", data["primeiro_nome"])
	assert.Equal(t, "Maria da Silva", data["nome_completo"])
	assert.Equal(t, "1234", data["pedido"])
}

func TestCampaignSendable(t *testing.T) {
	campaign := &models.Campaign{}
	assert.True(t, campaign.Sendable(models.CampaignStatusRunning))
	assert.True(t, campaign.Sendable(models.CampaignStatusScheduled))
	assert.False(t, campaign.Sendable(models.CampaignStatusStopped))
	assert.False(t, campaign.Sendable(models.CampaignStatusCompleted))
}
