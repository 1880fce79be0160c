package web

import (
	"errors"
	"strings"

	"github.com/dukex/curator/pkg/graph"
	"github.com/dukex/curator/pkg/schema"
	"github.com/dukex/curator/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("bad_request").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// invalidRecord reports a document that failed validation against a standard.
func invalidRecord(c fiber.Ctx, tree schema.ErrorTree) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationResponse{Valid: false, Errors: tree})
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var serviceErr *services.ServiceError

	code := ""
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code
	}

	switch {
	case services.IsValidationError(err):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType(typeOr(code, "validation_error")).
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType(typeOr(code, "conflict")).
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case graph.IsCycle(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("workflow_cycle").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case services.IsNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType(typeOr(code, "not_found")).
			WithDetail(err.Error())

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		return internalError(c, err)
	}
}

func typeOr(code, fallback string) string {
	if code == "" {
		return fallback
	}

	return strings.ToLower(code)
}
