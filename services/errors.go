package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Typed errors for the tournament core. Handlers translate these to HTTP
// statuses with ErrorResponse; everything else surfaces as a 500.

// ValidationError reports malformed input (bad stage sizes, bad counts).
type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

// ConflictError reports an operation that collides with existing state:
// an in-flight bracket stage, a duplicate pairing, a duplicate pending
// challenge.
type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

// StateError reports an action attempted from the wrong lifecycle state,
// like accepting a non-pending challenge or re-running a decided stage.
type StateError struct{ Message string }

func (e *StateError) Error() string { return e.Message }

// NotFoundError reports a missing team, match, submission or challenge.
type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

// PermissionError reports an actor who is not a member of the team the
// operation requires.
type PermissionError struct{ Message string }

func (e *PermissionError) Error() string { return e.Message }

// ShortfallError reports fewer active-submission qualifiers than a
// bracket stage needs.
type ShortfallError struct{ Message string }

func (e *ShortfallError) Error() string { return e.Message }

// ErrorResponse maps a service error onto the fiber response the teacher
// endpoints return: {"error": "..."} with the matching status code.
func ErrorResponse(c *fiber.Ctx, err error) error {
	var (
		validationErr *ValidationError
		conflictErr   *ConflictError
		stateErr      *StateError
		notFoundErr   *NotFoundError
		permissionErr *PermissionError
		shortfallErr  *ShortfallError
	)
	switch {
	case errors.As(err, &validationErr):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &stateErr):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &permissionErr):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &conflictErr):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &shortfallErr):
		return c.Status(422).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
}
