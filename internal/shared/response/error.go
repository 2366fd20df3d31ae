package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"fleets-server/internal/shared/errors"
)

// ErrorResponse is the JSON body of every failed request. Policy rejections
// carry the game rule that refused the action in Message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var statusByType = map[errors.ErrorType]int{
	errors.ErrorTypeNotFound:         http.StatusNotFound,
	errors.ErrorTypeValidation:       http.StatusBadRequest,
	errors.ErrorTypeConflict:         http.StatusConflict,
	errors.ErrorTypeUnauthorized:     http.StatusUnauthorized,
	errors.ErrorTypeForbidden:        http.StatusForbidden,
	errors.ErrorTypePolicy:           http.StatusUnprocessableEntity,
	errors.ErrorTypeMethodNotAllowed: http.StatusMethodNotAllowed,
	errors.ErrorTypeRateLimited:      http.StatusTooManyRequests,
	errors.ErrorTypeExternal:         http.StatusServiceUnavailable,
}

// StatusCode maps an error to the HTTP status it is answered with.
func StatusCode(err error) int {
	if code, ok := statusByType[errors.GetType(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Error logs err and answers it as JSON. Handlers log failures only through
// here. Internal and invariant failures never expose their message.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errorType := errors.GetType(err)
	statusCode := StatusCode(err)

	logError(logger, r, err, errorType, statusCode)

	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeJSON(w, statusCode, ErrorResponse{
		Error:   string(errorType),
		Message: message,
		Code:    statusCode,
	})
}

func logError(logger *slog.Logger, r *http.Request, err error, errorType errors.ErrorType, statusCode int) {
	logCtx := logger.With(
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error_type", errorType,
		"status_code", statusCode,
	)

	switch errorType {
	case errors.ErrorTypeNotFound, errors.ErrorTypeValidation, errors.ErrorTypeMethodNotAllowed:
		logCtx.Debug("Request rejected", "error", err)
	case errors.ErrorTypePolicy:
		logCtx.Info("Game rule rejected request", "error", err)
	case errors.ErrorTypeConflict:
		logCtx.Info("Conflict error", "error", err)
	case errors.ErrorTypeUnauthorized, errors.ErrorTypeForbidden:
		logCtx.Warn("Authorization error", "error", err)
	case errors.ErrorTypeRateLimited:
		logCtx.Warn("Rate limit exceeded", "error", err)
	case errors.ErrorTypeInvariant:
		logCtx.Error("Invariant violation", "error", err)
	case errors.ErrorTypeExternal:
		logCtx.Error("External service error", "error", err)
	default:
		logCtx.Error("Internal server error", "error", err)
	}
}

// Success answers data as JSON. A nil data writes only the status.
func Success(w http.ResponseWriter, statusCode int, data any) {
	if data == nil {
		w.WriteHeader(statusCode)
		return
	}
	writeJSON(w, statusCode, data)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// the status is already sent, nothing to do on failure
	_ = json.NewEncoder(w).Encode(body)
}
