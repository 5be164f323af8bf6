package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps() protocol.Dependencies {
	return protocol.Dependencies{
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     slog.Default(),
	}
}

func webhookStep() *protocol.Step {
	return &protocol.Step{
		Job: &models.Job{ID: "job1", OwnerID: "owner-1", ExecutionID: "exec1", NodeID: "wh1"},
		Execution: &models.Execution{
			ID:      "exec1",
			Context: models.ExecutionContext{"pedido": "1234", "contact": map[string]any{"phone": "5511999990001"}},
		},
	}
}

func TestNode_ExecutePostsContext(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	node, err := NewNode("wh1", map[string]any{"url": server.URL}, testDeps())
	require.NoError(t, err)

	result, err := node.Execute(t.Context(), webhookStep())
	require.NoError(t, err)

	assert.Equal(t, "1234", captured["pedido"])
	assert.Equal(t, http.StatusOK, result.Output["status_code"])
}

func TestNode_ExecuteNon2xxFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	node, err := NewNode("wh1", map[string]any{"url": server.URL}, testDeps())
	require.NoError(t, err)

	_, err = node.Execute(t.Context(), webhookStep())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNode_ExecuteCustomMethod(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	node, err := NewNode("wh1", map[string]any{"url": server.URL, "method": "put"}, testDeps())
	require.NoError(t, err)

	_, err = node.Execute(t.Context(), webhookStep())
	assert.NoError(t, err)
}

func TestNewNode_Validation(t *testing.T) {
	_, err := NewNode("wh1", map[string]any{}, testDeps())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")

	_, err = NewNode("wh1", map[string]any{"url": "https://example.com", "method": "TRACE"}, testDeps())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported method")
}
