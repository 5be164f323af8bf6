package web

import (
	"errors"
	"log/slog"

	"github.com/betoarts/masszap/pkg/campaign"
	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/betoarts/masszap/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	engine      *engine.Engine
	campaigns   *campaign.Service
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	eng *engine.Engine,
	campaigns *campaign.Service,
	persistence persistence.Persistence,
	registry *registry.Registry,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		engine:      eng,
		campaigns:   campaigns,
		persistence: persistence,
		registry:    registry,
		validator:   validator,
		logger:      logger,
	}
}

// TriggerJobs runs one poller pass over due jobs. The external clock calls
// this periodically; concurrent invocations are safe because every job is
// claimed before it is processed.
func (h *APIHandlers) TriggerJobs(c fiber.Ctx) error {
	processed, err := h.engine.ProcessDueJobs(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(TriggerResponse{Processed: processed})
}

// TriggerCampaigns starts every scheduled campaign whose scheduled time has
// passed. Each campaign is transitioned scheduled -> running before it is
// run, so concurrent invocations never double-send.
func (h *APIHandlers) TriggerCampaigns(c fiber.Ctx) error {
	dispatched, err := h.campaigns.DispatchScheduledCampaigns(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(TriggerResponse{Processed: dispatched})
}

// CreateFlow saves a flow graph. Node data is validated at execution start,
// not here: authors can save half-built drafts.
func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req CreateFlowRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	flow := &models.Flow{
		OwnerID: req.OwnerID,
		Name:    req.Name,
		Nodes:   req.Nodes,
		Edges:   req.Edges,
	}

	if err := h.persistence.Flows().Save(c.Context(), flow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(flow)
}

// GetFlow returns a flow by ID.
func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.persistence.Flows().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, persistence.ErrFlowNotFound) {
			return notFound(c, "flow_not_found", "flow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(flow)
}

// StartExecution validates the flow and creates an execution with its
// initial pending jobs. Jobs are processed by the job trigger, never here.
func (h *APIHandlers) StartExecution(c fiber.Ctx) error {
	var req StartExecutionRequest

	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	executionID, err := h.engine.StartExecution(c.Context(), c.Params("id"), req.OwnerID, req.Context)
	if err != nil {
		return handleStartExecutionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(StartExecutionResponse{ExecutionID: executionID})
}

// GetExecution returns an execution with its current context and status.
func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.Executions().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, persistence.ErrExecutionNotFound) {
			return notFound(c, "execution_not_found", "execution not found")
		}

		return internalError(c, err)
	}

	return c.JSON(execution)
}

// GetCampaign returns a campaign by ID.
func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	cmp, err := h.persistence.Campaigns().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, persistence.ErrCampaignNotFound) {
			return notFound(c, "campaign_not_found", "campaign not found")
		}

		return internalError(c, err)
	}

	return c.JSON(cmp)
}

// GetNodes returns the catalog of registered node types with their schemas.
func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	return c.JSON(h.registry.AvailableNodes())
}

// HealthCheck reports whether the backing store is reachable.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		h.logger.ErrorContext(c.Context(), "Health check failed", "error", err)

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
		})
	}

	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
