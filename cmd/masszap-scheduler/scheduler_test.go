package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence/memory"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, *memory.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := memory.NewPersistence()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	return NewScheduler(logger, p, reg, nil, nil), p
}

func TestScheduler_TickJobsProcessesDueWork(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	scheduler, p := newTestScheduler(t)
	ctx := t.Context()

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Boas-vindas",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart},
			{ID: "wh1", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
			{ID: "end1", Type: models.NodeTypeEnd},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "wh1"},
			{ID: "e2", Source: "wh1", Target: "end1"},
		},
	}
	require.NoError(t, p.Flows().Save(ctx, flow))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()
	eng := engine.New(p, reg, nil, whatsapp.NewClient(5*time.Second), logger)

	executionID, err := eng.StartExecution(ctx, flow.ID, "owner-1", nil)
	require.NoError(t, err)

	scheduler.tickJobs(ctx)
	scheduler.tickJobs(ctx)

	execution, err := p.Executions().GetByID(ctx, executionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
}

func TestScheduler_TickCampaignsDispatchesDueCampaigns(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	scheduler, p := newTestScheduler(t)
	ctx := t.Context()

	require.NoError(t, p.Accounts().Save(ctx, &models.Account{
		ID:           "owner-1",
		Email:        "owner@masszap.test",
		QuotaGranted: 10,
	}))

	instance := &models.Instance{
		OwnerID:     "owner-1",
		Name:        "Principal",
		APIURL:      server.URL,
		APIKey:      "secret",
		InstanceKey: "inst-01",
	}
	require.NoError(t, p.Instances().Save(ctx, instance))

	list := &models.ContactList{OwnerID: "owner-1", Name: "Clientes"}
	require.NoError(t, p.Contacts().SaveList(ctx, list))
	require.NoError(t, p.Contacts().SaveContact(ctx, &models.Contact{
		ContactListID: list.ID,
		Phone:         "+5511999990001",
		FirstName:     "Ana",
	}))

	past := time.Now().UTC().Add(-time.Minute)
	cmp := &models.Campaign{
		OwnerID:       "owner-1",
		InstanceID:    instance.ID,
		ContactListID: list.ID,
		Name:          "Oferta",
		Message:       "Olá {{primeiro_nome}}!",
		ScheduledAt:   &past,
		Status:        models.CampaignStatusScheduled,
	}
	require.NoError(t, p.Campaigns().Save(ctx, cmp))

	scheduler.tickCampaigns(ctx)

	got, err := p.Campaigns().GetByID(ctx, cmp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
}

func TestScheduler_StartRejectsBadCron(t *testing.T) {
	t.Parallel()

	scheduler, _ := newTestScheduler(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := scheduler.Start(ctx, "not a cron", "* * * * *")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobs cron")

	err = scheduler.Start(ctx, "* * * * *", "also bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "campaigns cron")
}
