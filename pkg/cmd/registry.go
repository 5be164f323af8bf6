package cmd

import (
	"log/slog"

	"github.com/betoarts/masszap/pkg/registry"
)

// NewRegistry creates a node registry with every built-in node type
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultNodes()

	return reg
}
