package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrTaskNotDeleted):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "an unexpected error occurred"
	}

	// Validation errors are constructed by this API with field-specific
	// messages, so they are safe to pass through.
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return "task not found"

	case errors.Is(err, store.ErrNotFound):
		return "not found"

	case errors.Is(err, store.ErrTaskNotDeleted):
		return "task is not deleted"

	case errors.Is(err, domain.ErrEmptyTaskTitle):
		return "title must be a non-empty string"

	case errors.Is(err, store.ErrInvalidEntity):
		return "invalid entity data"

	default:
		return "an unexpected error occurred"
	}
}

// HandleAPIError writes an error response for the given error, mapping it
// to a status code and a sanitized message. A non-empty overrideMessage
// replaces the mapped message; the full error still goes to the logs.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, overrideMessage string) {
	statusCode := MapErrorToStatusCode(err)

	message := overrideMessage
	if message == "" {
		message = GetSafeErrorMessage(err)
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, message, err)
}
