package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/hbeckers/punchd/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	status := statusFromCode(appErr.Code)
	response := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}

	WriteJSON(w, status, response)
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest

	case apperrors.ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized

	case apperrors.ErrCodeNotConfigured:
		return http.StatusPreconditionFailed

	case apperrors.ErrCodeEntryNotFound:
		return http.StatusNotFound

	case apperrors.ErrCodeOverlapDetected:
		return http.StatusConflict

	// The daemon acts as a gateway to the attendance service here.
	case apperrors.ErrCodeNetworkFailure,
		apperrors.ErrCodeRemoteAPI:
		return http.StatusBadGateway

	case apperrors.ErrCodeRecoveryInconclusive:
		return http.StatusServiceUnavailable

	case apperrors.ErrCodeInternal:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
