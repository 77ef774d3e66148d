package web

// errors.go provides unified error response handling for the web layer.
//
// All errors are logged with full technical detail server-side and
// returned to clients as JSON with a user-facing message, an action
// suggestion, and a machine-readable code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/bulkedit/internal/core"
	"github.com/JonMunkholm/bulkedit/internal/permissions"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error with request context and
// writes the mapped user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)
	requestID := middleware.GetReqID(r.Context())

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		noMatch       *permissions.NoMatchFoundError
		duplicate     *permissions.DuplicateAcrossTenantsError
		notAffiliated *permissions.NotAffiliatedError
		denied        *permissions.DeniedError
	)
	switch {
	case errors.Is(err, core.ErrOperationNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoIdentifiers),
		errors.Is(err, core.ErrUnknownEntityKind):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyOperations):
		return http.StatusTooManyRequests
	case errors.As(err, &noMatch):
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &notAffiliated), errors.As(err, &denied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Message: msg, Code: "BAD_REQUEST"})
}
