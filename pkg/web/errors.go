package web

import (
	"errors"

	"github.com/betoarts/masszap/pkg/engine"
	"github.com/betoarts/masszap/pkg/persistence"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, errType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(errType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleStartExecutionError maps engine errors onto problem responses. An
// ownership mismatch is reported exactly like a missing flow so the API
// never confirms that another owner's flow exists.
func handleStartExecutionError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, persistence.ErrFlowNotFound),
		errors.Is(err, engine.ErrOwnershipMismatch):
		return notFound(c, "flow_not_found", "flow not found")

	case errors.Is(err, engine.ErrNoStartNode),
		errors.Is(err, engine.ErrMultipleStartNodes),
		errors.Is(err, engine.ErrInvalidNode):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("invalid_flow").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	default:
		return internalError(c, err)
	}
}
