package web

// errors.go provides unified error response handling for the web layer.
//
// Every handler error flows through respondError: the technical error
// is logged server-side with the request ID for correlation, and the
// client receives the coded user message from importer.MapError with
// an HTTP status derived from the error kind.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldserve/importer/internal/importer"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped
// user-facing message with a status code derived from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := importer.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var parseErr *importer.ParseError

	switch {
	case errors.Is(err, importer.ErrSessionNotFound),
		errors.Is(err, importer.ErrConflictNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrAlreadyProcessing),
		errors.Is(err, importer.ErrSessionNotPending),
		errors.Is(err, importer.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, importer.ErrInvalidResolution):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondBadRequest reports a malformed request without going through
// the engine's error catalog.
func respondBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	slog.Warn("bad request",
		"path", r.URL.Path,
		"method", r.Method,
		"reason", message,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ001",
	})
}
