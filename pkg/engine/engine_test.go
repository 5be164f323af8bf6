package engine_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/persistence/memory"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*engine.Engine, *memory.Persistence) {
	t.Helper()

	p := memory.NewPersistence()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	return engine.New(p, reg, nil, whatsapp.NewClient(5*time.Second), logger), p
}

func saveFlow(t *testing.T, p *memory.Persistence, flow *models.Flow) {
	t.Helper()
	require.NoError(t, p.Flows().Save(t.Context(), flow))
}

// linearFlow builds start -> webhook -> end against the given URL.
func linearFlow(url string) *models.Flow {
	return &models.Flow{
		OwnerID: "owner-1",
		Name:    "Linear Flow",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart, Data: map[string]any{}},
			{ID: "wh1", Type: models.NodeTypeWebhook, Data: map[string]any{"url": url}},
			{ID: "end1", Type: models.NodeTypeEnd, Data: map[string]any{}},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "wh1"},
			{ID: "e2", Source: "wh1", Target: "end1"},
		},
	}
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestStartExecution_SeedsStartSuccessors(t *testing.T) {
	eng, p := newTestEngine(t)

	flow := linearFlow("https://example.com/hook")
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", models.ExecutionContext{"pedido": "42"})
	require.NoError(t, err)
	require.NotEmpty(t, executionID)

	execution, err := p.Executions().GetByID(t.Context(), executionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, execution.Status)
	assert.Equal(t, "42", execution.Context["pedido"])

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "wh1", jobs[0].NodeID)
	assert.Equal(t, models.JobStatusPending, jobs[0].Status)
}

func TestStartExecution_OwnershipMismatch(t *testing.T) {
	eng, p := newTestEngine(t)

	flow := linearFlow("https://example.com/hook")
	saveFlow(t, p, flow)

	_, err := eng.StartExecution(t.Context(), flow.ID, "intruder", nil)
	assert.ErrorIs(t, err, engine.ErrOwnershipMismatch)
}

func TestStartExecution_MissingFlow(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.StartExecution(t.Context(), "nope", "owner-1", nil)
	assert.ErrorIs(t, err, persistence.ErrFlowNotFound)
}

func TestStartExecution_NoStartNode(t *testing.T) {
	eng, p := newTestEngine(t)

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Headless Flow",
		Nodes: []*models.FlowNode{
			{ID: "end1", Type: models.NodeTypeEnd, Data: map[string]any{}},
		},
	}
	saveFlow(t, p, flow)

	_, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	assert.ErrorIs(t, err, engine.ErrNoStartNode)
}

func TestStartExecution_InvalidNodeData(t *testing.T) {
	eng, p := newTestEngine(t)

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Broken Flow",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart, Data: map[string]any{}},
			{ID: "wait1", Type: models.NodeTypeWait, Data: map[string]any{"unit": "minutes"}},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "wait1"},
		},
	}
	saveFlow(t, p, flow)

	_, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wait1")
}

func TestProcessDueJobs_RunsFlowToCompletion(t *testing.T) {
	eng, p := newTestEngine(t)
	server := okServer(t)

	flow := linearFlow(server.URL)
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.NoError(t, err)

	// First pass processes the webhook job and enqueues the end job.
	processed, err := eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	// Second pass processes the end job.
	processed, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	execution, err := p.Executions().GetByID(t.Context(), executionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	require.NotNil(t, execution.CompletedAt)

	// Webhook output landed in the execution context under its node ID.
	output, ok := execution.Context["wh1"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, output["status_code"])

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	for _, job := range jobs {
		assert.Equal(t, models.JobStatusCompleted, job.Status)
	}
}

func TestProcessDueJobs_EmptyQueue(t *testing.T) {
	eng, p := newTestEngine(t)

	processed, err := eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Empty(t, p.EventLog())
}

func TestProcessDueJobs_FanOut(t *testing.T) {
	eng, p := newTestEngine(t)
	server := okServer(t)

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Fan Out Flow",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart, Data: map[string]any{}},
			{ID: "wh1", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
			{ID: "wh2", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
			{ID: "wh3", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "wh1"},
			{ID: "e2", Source: "wh1", Target: "wh2"},
			{ID: "e3", Source: "wh1", Target: "wh3"},
		},
	}
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.NoError(t, err)

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	pending := 0

	for _, job := range jobs {
		if job.Status == models.JobStatusPending {
			pending++
		}
	}

	assert.Equal(t, 2, pending)
}

func TestProcessDueJobs_ConditionSelectsBranch(t *testing.T) {
	eng, p := newTestEngine(t)
	server := okServer(t)

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Branching Flow",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart, Data: map[string]any{}},
			{ID: "cond1", Type: models.NodeTypeCondition, Data: map[string]any{"expression": "context.age > 18"}},
			{ID: "adult", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
			{ID: "minor", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "cond1"},
			{ID: "e2", Source: "cond1", Target: "adult", SourceHandle: "true"},
			{ID: "e3", Source: "cond1", Target: "minor", SourceHandle: "false"},
		},
	}
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", models.ExecutionContext{"age": 20})
	require.NoError(t, err)

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	var enqueued []string

	for _, job := range jobs {
		if job.Status == models.JobStatusPending {
			enqueued = append(enqueued, job.NodeID)
		}
	}

	assert.Equal(t, []string{"adult"}, enqueued)
}

func TestProcessDueJobs_MalformedConditionTakesFalseBranch(t *testing.T) {
	eng, p := newTestEngine(t)
	server := okServer(t)

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Broken Condition Flow",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart, Data: map[string]any{}},
			{ID: "cond1", Type: models.NodeTypeCondition, Data: map[string]any{"expression": "context.age >>> oops"}},
			{ID: "adult", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
			{ID: "minor", Type: models.NodeTypeWebhook, Data: map[string]any{"url": server.URL}},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "cond1"},
			{ID: "e2", Source: "cond1", Target: "adult", SourceHandle: "true"},
			{ID: "e3", Source: "cond1", Target: "minor", SourceHandle: "false"},
		},
	}
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", models.ExecutionContext{"age": 20})
	require.NoError(t, err)

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)

	var enqueued []string

	for _, job := range jobs {
		if job.Status == models.JobStatusPending {
			enqueued = append(enqueued, job.NodeID)
		}
	}

	assert.Equal(t, []string{"minor"}, enqueued)
}

func TestProcessDueJobs_WaitNotAutoFannedOut(t *testing.T) {
	eng, p := newTestEngine(t)

	flow := &models.Flow{
		OwnerID: "owner-1",
		Name:    "Waiting Flow",
		Nodes: []*models.FlowNode{
			{ID: "start1", Type: models.NodeTypeStart, Data: map[string]any{}},
			{ID: "wait1", Type: models.NodeTypeWait, Data: map[string]any{"duration": float64(30), "unit": "minutes"}},
			{ID: "end1", Type: models.NodeTypeEnd, Data: map[string]any{}},
		},
		Edges: []*models.FlowEdge{
			{ID: "e1", Source: "start1", Target: "wait1"},
			{ID: "e2", Source: "wait1", Target: "end1"},
		},
	}
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.NoError(t, err)

	before := time.Now().UTC()

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	require.Len(t, jobs, 2, "wait must enqueue exactly one successor, not two")

	var successor *models.Job

	for _, job := range jobs {
		if job.NodeID == "end1" {
			successor = job
		}
	}

	require.NotNil(t, successor)
	assert.InDelta(t, (30 * time.Minute).Seconds(), successor.ScheduledAt.Sub(before).Seconds(), 5)

	// The far-future successor is invisible to the poller now.
	processed, err := eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestProcessDueJobs_RetryBackoffThenTerminalFailure(t *testing.T) {
	eng, p := newTestEngine(t)

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	flow := linearFlow(server.URL)
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.NoError(t, err)

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	jobID := jobs[0].ID

	// Attempt 1: fails, goes back to pending with backoff 2^1 * 60s.
	before := time.Now().UTC()

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	job, err := p.Jobs().GetByID(t.Context(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Contains(t, job.ErrorMessage, "502")
	assert.InDelta(t, (2 * time.Minute).Seconds(), job.ScheduledAt.Sub(before).Seconds(), 5)

	// Attempt 2: force the retry due, fails again with backoff 2^2 * 60s.
	require.NoError(t, p.Jobs().ScheduleRetry(t.Context(), jobID, 1, before.Add(-time.Second), job.ErrorMessage))

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	job, err = p.Jobs().GetByID(t.Context(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.RetryCount)

	// Attempt 3: budget exhausted, job and execution fail terminally.
	require.NoError(t, p.Jobs().ScheduleRetry(t.Context(), jobID, 2, before.Add(-time.Second), job.ErrorMessage))

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	job, err = p.Jobs().GetByID(t.Context(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, job.MaxRetries, job.RetryCount)
	assert.True(t, job.RetriesExhausted())
	assert.EqualValues(t, 3, calls.Load())

	execution, err := p.Executions().GetByID(t.Context(), executionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.ErrorMessage, "502")
}

func TestProcessDueJobs_DiscardsJobsOfFinalizedExecutions(t *testing.T) {
	eng, p := newTestEngine(t)
	server := okServer(t)

	flow := linearFlow(server.URL)
	saveFlow(t, p, flow)

	executionID, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.NoError(t, err)

	require.NoError(t, p.Executions().MarkFailed(t.Context(), executionID, time.Now().UTC(), "sibling exhausted retries"))

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	jobs, err := p.Jobs().ListByExecution(t.Context(), executionID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusFailed, jobs[0].Status)
	assert.Contains(t, jobs[0].ErrorMessage, "no longer running")
}

func TestProcessDueJobs_EmitsLifecycleEvents(t *testing.T) {
	eng, p := newTestEngine(t)
	server := okServer(t)

	flow := linearFlow(server.URL)
	saveFlow(t, p, flow)

	_, err := eng.StartExecution(t.Context(), flow.ID, "owner-1", nil)
	require.NoError(t, err)

	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)
	_, err = eng.ProcessDueJobs(t.Context())
	require.NoError(t, err)

	types := make([]string, 0)
	for _, event := range p.EventLog() {
		types = append(types, event.Type)
	}

	assert.Contains(t, types, "execution.started")
	assert.Contains(t, types, "job.completed")
	assert.Contains(t, types, "execution.completed")
}
