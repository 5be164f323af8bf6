// Package cmd provides common initialization for the command-line
// entrypoints.
package cmd

import (
	"context"
	"log/slog"

	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/persistence/postgresql"
)

// NewPersistence opens the backing store and runs pending migrations.
// Startup is the only place a missing database should surface, so failures
// panic instead of returning.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(err)
	}

	return p
}
