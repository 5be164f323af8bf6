package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/google/uuid"
)

// FlowRepository handles flow graph database operations.
type FlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowRepository creates a new flow repository.
func NewFlowRepository(db *sql.DB, logger *slog.Logger) *FlowRepository {
	return &FlowRepository{db: db, logger: logger}
}

// Save upserts a flow and replaces its nodes and edges in one transaction.
func (r *FlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	now := time.Now().UTC()

	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow ID: %w", err)
		}

		flow.ID = id.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	flowQuery := `
		INSERT INTO flows (id, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, flowQuery, flow.ID, flow.OwnerID, flow.Name, flow.CreatedAt, flow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save flow base: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM flow_edges WHERE flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM flow_nodes WHERE flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	for _, node := range flow.Nodes {
		dataJSON, marshalErr := json.Marshal(node.Data)
		if marshalErr != nil {
			err = fmt.Errorf("failed to marshal node data: %w", marshalErr)

			return err
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO flow_nodes (flow_id, id, node_type, data) VALUES ($1, $2, $3, $4)",
			flow.ID, node.ID, node.Type, dataJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to save flow node %s: %w", node.ID, err)
		}
	}

	for _, edge := range flow.Edges {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO flow_edges (flow_id, id, source_node_id, target_node_id, source_handle) VALUES ($1, $2, $3, $4, $5)",
			flow.ID, edge.ID, edge.Source, edge.Target, nullableString(edge.SourceHandle),
		)
		if err != nil {
			return fmt.Errorf("failed to save flow edge %s: %w", edge.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit flow save: %w", err)
	}

	return nil
}

// GetByID loads a flow with its nodes and edges.
func (r *FlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	query := `
		SELECT
			id
		  , owner_id
		  , name
		  , created_at
		  , updated_at
		FROM flows
		WHERE id = $1
	`

	flow := &models.Flow{}

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&flow.ID, &flow.OwnerID, &flow.Name, &flow.CreatedAt, &flow.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrFlowNotFound
		}

		return nil, fmt.Errorf("failed to scan flow: %w", err)
	}

	err = r.loadNodesAndEdges(ctx, flow)
	if err != nil {
		return nil, err
	}

	return flow, nil
}

// ListByOwner returns every flow of an owner, without nodes and edges.
func (r *FlowRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Flow, error) {
	query := `
		SELECT
			id
		  , owner_id
		  , name
		  , created_at
		  , updated_at
		FROM flows
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}

	defer r.closeRows(ctx, rows)

	flows := make([]*models.Flow, 0)

	for rows.Next() {
		flow := &models.Flow{}

		err = rows.Scan(&flow.ID, &flow.OwnerID, &flow.Name, &flow.CreatedAt, &flow.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}

		flows = append(flows, flow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flows: %w", err)
	}

	return flows, nil
}

func (r *FlowRepository) loadNodesAndEdges(ctx context.Context, flow *models.Flow) error {
	nodeRows, err := r.db.QueryContext(ctx,
		"SELECT id, node_type, data FROM flow_nodes WHERE flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to query flow nodes: %w", err)
	}

	defer r.closeRows(ctx, nodeRows)

	flow.Nodes = make([]*models.FlowNode, 0)

	for nodeRows.Next() {
		node := &models.FlowNode{}

		var dataJSON []byte

		err = nodeRows.Scan(&node.ID, &node.Type, &dataJSON)
		if err != nil {
			return fmt.Errorf("failed to scan flow node: %w", err)
		}

		if len(dataJSON) > 0 {
			err = json.Unmarshal(dataJSON, &node.Data)
			if err != nil {
				return fmt.Errorf("failed to unmarshal node data: %w", err)
			}
		}

		flow.Nodes = append(flow.Nodes, node)
	}

	err = nodeRows.Err()
	if err != nil {
		return fmt.Errorf("error iterating flow nodes: %w", err)
	}

	edgeRows, err := r.db.QueryContext(ctx,
		"SELECT id, source_node_id, target_node_id, source_handle FROM flow_edges WHERE flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to query flow edges: %w", err)
	}

	defer r.closeRows(ctx, edgeRows)

	flow.Edges = make([]*models.FlowEdge, 0)

	for edgeRows.Next() {
		edge := &models.FlowEdge{}

		var handle sql.NullString

		err = edgeRows.Scan(&edge.ID, &edge.Source, &edge.Target, &handle)
		if err != nil {
			return fmt.Errorf("failed to scan flow edge: %w", err)
		}

		edge.SourceHandle = handle.String

		flow.Edges = append(flow.Edges, edge)
	}

	err = edgeRows.Err()
	if err != nil {
		return fmt.Errorf("error iterating flow edges: %w", err)
	}

	return nil
}

func (r *FlowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}
