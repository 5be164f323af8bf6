// Package registry maps node types to their executor factories.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/betoarts/masszap/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// Registry holds the node factories available to the engine.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.NodeFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode registers a node factory under its type ID.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.factories[factory.ID()] = factory
}

// CreateExecutor validates the node data against the type's schema and
// builds an executor for it.
func (r *Registry) CreateExecutor(ctx context.Context, nodeType, nodeID string, data map[string]any, deps protocol.Dependencies) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	err := r.ValidateNodeData(nodeType, data)
	if err != nil {
		return nil, err
	}

	return factory.Create(ctx, nodeID, data, deps)
}

// ValidateNodeData checks node data against the registered type's JSON
// schema.
func (r *Registry) ValidateNodeData(nodeType string, data map[string]any) error {
	factory, ok := r.factories[nodeType]
	if !ok {
		return fmt.Errorf("node type '%s' not registered", nodeType)
	}

	if data == nil {
		data = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate node data: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, validationError := range result.Errors() {
			details = append(details, validationError.String())
		}

		return fmt.Errorf("invalid data for node type '%s': %s", nodeType, strings.Join(details, "; "))
	}

	return nil
}

// IsRegistered reports whether a node type has a factory.
func (r *Registry) IsRegistered(nodeType string) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// AvailableNodes returns metadata for every registered node type.
func (r *Registry) AvailableNodes() []NodeInfo {
	infos := make([]NodeInfo, 0, len(r.factories))

	for _, factory := range r.factories {
		infos = append(infos, NodeInfo{
			ID:          factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return infos
}

// NodeInfo describes a registered node type.
type NodeInfo struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}
