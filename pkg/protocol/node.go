// Package protocol defines the interfaces and contracts for pluggable node
// executors.
package protocol

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/whatsapp"
)

// Dependencies contains the shared services node executors may need.
type Dependencies struct {
	Persistence persistence.Persistence
	WhatsApp    *whatsapp.Client
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Step carries everything the engine knows about the job being processed:
// the claimed job, its owning execution, and the flow graph.
type Step struct {
	Job       *models.Job
	Execution *models.Execution
	Flow      *models.Flow
}

// Result is what a node executor reports back on success.
type Result struct {
	// Output is merged into the execution context under the node's ID.
	Output map[string]any

	// Handle restricts successor selection to edges carrying this source
	// handle. Empty means every outgoing edge.
	Handle string
}

// NodeExecutor runs one node's side effect or decision.
type NodeExecutor interface {
	Execute(ctx context.Context, step *Step) (*Result, error)
}

// NodeFactory creates node executor instances and provides metadata about
// the node type.
type NodeFactory interface {
	// Create creates an executor bound to the given node data
	Create(ctx context.Context, nodeID string, data map[string]any, deps Dependencies) (NodeExecutor, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}
