// Package webhook provides the outbound HTTP call node executor.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/betoarts/masszap/pkg/protocol"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Node posts the execution context as JSON to a user-configured URL.
type Node struct {
	id         string
	url        string
	method     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNode creates a new webhook node executor.
func NewNode(id string, data map[string]any, deps protocol.Dependencies) (*Node, error) {
	url, ok := data["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	method, _ := data["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, fmt.Errorf("unsupported method %q", method)
	}

	return &Node{
		id:         id,
		url:        url,
		method:     method,
		httpClient: deps.HTTPClient,
		logger:     deps.Logger.With("node_id", id, "node_type", "webhook"),
	}, nil
}

// Execute issues the HTTP call. Any non-2xx response is a failure.
func (n *Node) Execute(ctx context.Context, step *protocol.Step) (*protocol.Result, error) {
	body, err := json.Marshal(step.Execution.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution context: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, n.method, n.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.logger.InfoContext(ctx, "Webhook delivered", "url", n.url, "status_code", resp.StatusCode)

	return &protocol.Result{
		Output: map[string]any{
			"url":         n.url,
			"status_code": resp.StatusCode,
		},
	}, nil
}
