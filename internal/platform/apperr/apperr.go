// Package apperr defines the error taxonomy shared by all domain
// packages and its mapping onto HTTP responses. Handlers surface every
// domain error as {"error": "<message>"} with a status derived from the
// error's kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrNotFound marks lookups of patients, receipts or snapshots
	// whose identifier does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks rejected input: missing required fields,
	// non-positive amounts, malformed backup payloads.
	ErrValidation = errors.New("invalid")

	// ErrConflict marks mutations blocked by existing references.
	ErrConflict = errors.New("conflict")
)

func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// StatusCode maps an error to its HTTP status. The blocked-delete
// conflict is reported as 400, matching the published API contract.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes err as the API error body.
func JSON(c echo.Context, err error) error {
	return c.JSON(StatusCode(err), map[string]string{"error": Message(err)})
}

// Message strips the taxonomy suffix appended by the constructors so
// response bodies carry only the human-readable part.
func Message(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrValidation, ErrConflict} {
		suffix := ": " + sentinel.Error()
		if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
			return msg[:len(msg)-len(suffix)]
		}
	}
	return msg
}
