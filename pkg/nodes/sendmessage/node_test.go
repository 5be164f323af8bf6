package sendmessage

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence/memory"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/betoarts/masszap/pkg/whatsapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDelivery(t *testing.T, handler http.HandlerFunc) (protocol.Dependencies, *models.Instance) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := memory.NewPersistence()

	instance := &models.Instance{
		OwnerID:     "owner-1",
		Name:        "Main",
		APIURL:      server.URL,
		APIKey:      "secret",
		InstanceKey: "inst-01",
	}
	require.NoError(t, p.Instances().Save(t.Context(), instance))

	deps := protocol.Dependencies{
		Persistence: p,
		WhatsApp:    whatsapp.NewClient(5 * time.Second),
		Logger:      slog.Default(),
	}

	return deps, instance
}

func deliveryStep(instanceID string) *protocol.Step {
	return &protocol.Step{
		Job: &models.Job{ID: "job1", OwnerID: "owner-1", ExecutionID: "exec1", NodeID: "msg1"},
		Execution: &models.Execution{
			ID: "exec1",
			Context: models.ExecutionContext{
				"instance_id":   instanceID,
				"primeiro_nome": "Ana",
				"contact":       map[string]any{"phone": "5511999990001"},
			},
		},
	}
}

func TestNode_ExecuteSendsPersonalizedMessage(t *testing.T) {
	var captured struct {
		Number string `json:"number"`
		Text   string `json:"text"`
	}

	deps, instance := setupDelivery(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/text/inst-01", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	})

	node, err := NewNode("msg1", map[string]any{"message": "Olá {{primeiro_nome}}!"}, deps)
	require.NoError(t, err)

	result, err := node.Execute(t.Context(), deliveryStep(instance.ID))
	require.NoError(t, err)

	assert.Equal(t, "5511999990001", captured.Number)
	assert.Equal(t, "Olá Ana!", captured.Text)
	assert.Equal(t, "Olá Ana!", result.Output["message"])
}

func TestNode_ExecuteProviderError(t *testing.T) {
	deps, instance := setupDelivery(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance disconnected", http.StatusBadGateway)
	})

	node, err := NewNode("msg1", map[string]any{"message": "Olá"}, deps)
	require.NoError(t, err)

	_, err = node.Execute(t.Context(), deliveryStep(instance.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNode_ExecuteOwnershipMismatch(t *testing.T) {
	deps, instance := setupDelivery(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	step := deliveryStep(instance.ID)
	step.Job.OwnerID = "someone-else"

	node, err := NewNode("msg1", map[string]any{"message": "Olá"}, deps)
	require.NoError(t, err)

	_, err = node.Execute(t.Context(), step)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong")
}

func TestNode_ExecuteMissingPhone(t *testing.T) {
	deps, instance := setupDelivery(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	step := deliveryStep(instance.ID)
	step.Execution.Context = models.ExecutionContext{"instance_id": instance.ID}

	node, err := NewNode("msg1", map[string]any{"message": "Olá"}, deps)
	require.NoError(t, err)

	_, err = node.Execute(t.Context(), step)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact phone")
}

func TestNewNode_MissingMessage(t *testing.T) {
	_, err := NewNode("msg1", map[string]any{}, protocol.Dependencies{Logger: slog.Default()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message")
}
