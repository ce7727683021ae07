package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/voicetree/voicetree/pkg/services"
	"github.com/voicetree/voicetree/pkg/validation"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

// unprocessable renders a failed validation result; the full findings ride in
// the response so the editor can highlight every issue at once.
func unprocessable(c fiber.Ctx, detail string, result validation.Result) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"type":     "graph_validation_failed",
		"title":    "Unprocessable Entity",
		"status":   fiber.StatusUnprocessableEntity,
		"detail":   detail,
		"instance": c.Path(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var graphErr *services.GraphValidationError

	switch {
	case errors.As(err, &graphErr):
		return unprocessable(c, graphErr.Error(), graphErr.Result)

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsNotFoundError(err):
		return notFound(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, "promotion_conflict", err.Error())

	case services.IsInvalidStateError(err):
		return conflict(c, "invalid_state", err.Error())

	default:
		return internalError(c, err)
	}
}
