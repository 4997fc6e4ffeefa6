package http

import (
	"errors"
	"net/http"

	"stockroom/internal/core"
	applog "stockroom/internal/log"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return applog.ErrorTypeValidation
	case http.StatusNotFound:
		return applog.ErrorTypeNotFound
	case http.StatusConflict:
		return applog.ErrorTypeConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return applog.ErrorTypeAuth
	default:
		return applog.ErrorTypeInternal
	}
}

// writeError renders err in the response envelope. Server errors are logged
// with the request logger and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, errorType(status), op)
		InternalServerError("internal server error").Write(w)
		return
	}
	logger.DebugContext(r.Context(), "Request rejected",
		applog.FieldOperation, op,
		applog.FieldStatusCode, status,
		applog.FieldErrorType, errorType(status),
		applog.FieldError, err.Error())
	ErrorResponse(status, err.Error()).Write(w)
}

// authError adapts writeError to the auth middleware.
func authError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, "auth", err)
}
