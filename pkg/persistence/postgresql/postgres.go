// Package postgresql provides the PostgreSQL persistence implementation
// for the execution engine.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	flows      *FlowRepository
	jobs       *JobRepository
	executions *ExecutionRepository
	campaigns  *CampaignRepository
	contacts   *ContactRepository
	instances  *InstanceRepository
	accounts   *AccountRepository
	events     *EventRepository
}

// NewPersistence connects, runs migrations and returns the persistence
// layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		flows:      NewFlowRepository(database, logger),
		jobs:       NewJobRepository(database, logger),
		executions: NewExecutionRepository(database, logger),
		campaigns:  NewCampaignRepository(database, logger),
		contacts:   NewContactRepository(database, logger),
		instances:  NewInstanceRepository(database, logger),
		accounts:   NewAccountRepository(database, logger),
		events:     NewEventRepository(database, logger),
	}, nil
}

func (p *Persistence) Flows() persistence.FlowRepository {
	return p.flows
}

func (p *Persistence) Jobs() persistence.JobRepository {
	return p.jobs
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executions
}

func (p *Persistence) Campaigns() persistence.CampaignRepository {
	return p.campaigns
}

func (p *Persistence) Contacts() persistence.ContactRepository {
	return p.contacts
}

func (p *Persistence) Instances() persistence.InstanceRepository {
	return p.instances
}

func (p *Persistence) Accounts() persistence.AccountRepository {
	return p.accounts
}

func (p *Persistence) Events() persistence.EventRepository {
	return p.events
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
