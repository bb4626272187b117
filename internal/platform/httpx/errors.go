package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jokesdb/jokes-api/internal/shared"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusUnprocessableEntity
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindForbidden:
		return http.StatusForbidden
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	status := StatusFor(kind)
	problem := ProblemDetail{Title: http.StatusText(status), Status: status}
	if kind != shared.KindInternal {
		problem.Detail = shared.UserSafeMessage(err)
	}
	var e *shared.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		problem.Errors = e.Fields
	}
	JSON(w, status, problem)
}

// BadJSON reports an undecodable body as a validation failure.
func BadJSON(w http.ResponseWriter, err error) {
	RespondError(w, shared.FieldError("body", err.Error()))
}

// Fail renders err, logging it under op first when it is unexpected.
func Fail(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal && logger != nil {
		logger.Error(op, slog.Any("error", err))
	}
	RespondError(w, err)
}
