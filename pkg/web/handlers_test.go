package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/campaign"
	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence/memory"
	"github.com/betoarts/masszap/pkg/quota"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/betoarts/masszap/pkg/web"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) (*fiber.App, *memory.Persistence) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := memory.NewPersistence()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	client := whatsapp.NewClient(5 * time.Second)
	eng := engine.New(p, reg, nil, client, logger)
	quotaService := quota.NewService(p.Accounts(), nil, logger)
	campaignService := campaign.NewService(p, quotaService, client, nil, logger)

	handlers := web.NewAPIHandlers(
		eng,
		campaignService,
		p,
		reg,
		validator.New(validator.WithRequiredStructEnabled()),
		logger,
	)

	app := fiber.New()

	app.Post("/triggers/jobs", handlers.TriggerJobs)
	app.Post("/triggers/campaigns", handlers.TriggerCampaigns)

	f := app.Group("/flows")
	f.Post("/", handlers.CreateFlow)
	f.Get("/:id", handlers.GetFlow)
	f.Post("/:id/executions", handlers.StartExecution)

	app.Get("/executions/:id", handlers.GetExecution)
	app.Get("/campaigns/:id", handlers.GetCampaign)
	app.Get("/nodes", handlers.GetNodes)
	app.Get("/health", handlers.HealthCheck)

	return app, p
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, respBody
}

func saveFlow(t *testing.T, p *memory.Persistence, webhookURL string) *models.Flow {
	t.Helper()

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Boas-vindas",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart},
			{ID: "wh1", Type: models.NodeTypeWebhook, Data: map[string]any{"url": webhookURL}},
			{ID: "end1", Type: models.NodeTypeEnd},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "wh1"},
			{ID: "e2", Source: "wh1", Target: "end1"},
		},
	}
	require.NoError(t, p.Flows().Save(t.Context(), flow))

	return flow
}

func TestAPIHandlers_CreateFlow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "successful creation",
			requestBody: web.CreateFlowRequest{
				OwnerID: "owner-1",
				Name:    "Boas-vindas",
				Nodes: []*models.FlowNode{
					{ID: "start1", Type: models.NodeTypeStart},
				},
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "validation error - missing owner",
			requestBody: web.CreateFlowRequest{
				Name: "Boas-vindas",
				Nodes: []*models.FlowNode{
					{ID: "start1", Type: models.NodeTypeStart},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - name too short",
			requestBody: web.CreateFlowRequest{
				OwnerID: "owner-1",
				Name:    "Ab",
				Nodes: []*models.FlowNode{
					{ID: "start1", Type: models.NodeTypeStart},
				},
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - no nodes",
			requestBody: web.CreateFlowRequest{
				OwnerID: "owner-1",
				Name:    "Boas-vindas",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			resp, body := doJSON(t, app, http.MethodPost, "/flows/", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var flow models.Flow
				require.NoError(t, json.Unmarshal(body, &flow))
				assert.NotEmpty(t, flow.ID)
				assert.Equal(t, "owner-1", flow.OwnerID)
			}
		})
	}
}

func TestAPIHandlers_GetFlow(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	flow := saveFlow(t, p, "http://example.test/hook")

	resp, body := doJSON(t, app, http.MethodGet, "/flows/"+flow.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Flow
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, flow.ID, got.ID)
	assert.Len(t, got.Nodes, 3)

	resp, _ = doJSON(t, app, http.MethodGet, "/flows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_StartExecution(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	flow := saveFlow(t, p, "http://example.test/hook")

	resp, body := doJSON(t, app, http.MethodPost, "/flows/"+flow.ID+"/executions", web.StartExecutionRequest{
		OwnerID: "owner-1",
		Context: models.ExecutionContext{"contact": map[string]any{"phone": "+5511999990000"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.StartExecutionResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ExecutionID)

	execution, err := p.Executions().GetByID(t.Context(), created.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)

	jobs, err := p.Jobs().ListByExecution(t.Context(), created.ExecutionID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "wh1", jobs[0].NodeID)
}

func TestAPIHandlers_StartExecution_Errors(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	flow := saveFlow(t, p, "http://example.test/hook")

	noStart := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Sem início",
		Nodes: []*models.FlowNode{
			{ID: "end1", Type: models.NodeTypeEnd},
		},
	}
	require.NoError(t, p.Flows().Save(t.Context(), noStart))

	badNode := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Espera quebrada",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart},
			{ID: "wait1", Type: models.NodeTypeWait, Data: map[string]any{"unit": "minutes"}},
		},
	}
	require.NoError(t, p.Flows().Save(t.Context(), badNode))

	tests := []struct {
		name           string
		flowID         string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "missing flow",
			flowID:         "missing",
			requestBody:    web.StartExecutionRequest{OwnerID: "owner-1"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "ownership mismatch reads as not found",
			flowID:         flow.ID,
			requestBody:    web.StartExecutionRequest{OwnerID: "intruder"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "flow without start node",
			flowID:         noStart.ID,
			requestBody:    web.StartExecutionRequest{OwnerID: "owner-1"},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "invalid node data",
			flowID:         badNode.ID,
			requestBody:    web.StartExecutionRequest{OwnerID: "owner-1"},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "missing owner",
			flowID:         flow.ID,
			requestBody:    web.StartExecutionRequest{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := doJSON(t, app, http.MethodPost, "/flows/"+tt.flowID+"/executions", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.NotEmpty(t, body)
		})
	}
}

func TestAPIHandlers_TriggerJobs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	app, p := setupTestApp(t)
	flow := saveFlow(t, p, server.URL)

	resp, _ := doJSON(t, app, http.MethodPost, "/flows/"+flow.ID+"/executions", web.StartExecutionRequest{
		OwnerID: "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// First pass runs the webhook node, second the end node.
	for _, expected := range []int{1, 1, 0} {
		resp, body := doJSON(t, app, http.MethodPost, "/triggers/jobs", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var trigger web.TriggerResponse
		require.NoError(t, json.Unmarshal(body, &trigger))
		assert.Equal(t, expected, trigger.Processed)
	}
}

func TestAPIHandlers_GetExecution(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	flow := saveFlow(t, p, "http://example.test/hook")

	resp, body := doJSON(t, app, http.MethodPost, "/flows/"+flow.ID+"/executions", web.StartExecutionRequest{
		OwnerID: "owner-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created web.StartExecutionResponse
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+created.ExecutionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var execution models.Execution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, flow.ID, execution.FlowID)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)

	resp, _ = doJSON(t, app, http.MethodGet, "/executions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_TriggerCampaigns(t *testing.T) {
	t.Parallel()

	var delivered int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered++

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	app, p := setupTestApp(t)
	ctx := t.Context()

	account := &models.Account{ID: "owner-1", Email: "owner@masszap.test", QuotaGranted: 100}
	require.NoError(t, p.Accounts().Save(ctx, account))

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

	resp, body := doJSON(t, app, http.MethodPost, "/triggers/campaigns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trigger web.TriggerResponse
	require.NoError(t, json.Unmarshal(body, &trigger))
	assert.Equal(t, 1, trigger.Processed)
	assert.Equal(t, 1, delivered)

	resp, body = doJSON(t, app, http.MethodGet, "/campaigns/"+cmp.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got models.Campaign
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/triggers/campaigns", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &trigger))
	assert.Equal(t, 0, trigger.Processed)
}

func TestAPIHandlers_GetCampaign_NotFound(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/campaigns/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetNodes(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/nodes", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var nodes []registry.NodeInfo
	require.NoError(t, json.Unmarshal(body, &nodes))
	assert.Len(t, nodes, 8)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
