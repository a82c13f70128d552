package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/stagelink-core/internal/bridges/mixer"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeValidation   = "validation_error"
	ErrCodeConflict     = "conflict"
	ErrCodeUnavailable  = "console_unavailable"
	ErrCodeGatewayTime  = "console_timeout"
	ErrCodeBadGateway   = "console_error"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeConsoleError maps mixer sentinel errors onto HTTP status codes.
//
// Validation failures are the client's fault (422), a missing connection is
// a service condition (503), console silence is a gateway timeout (504), and
// malformed console replies are a bad gateway (502).
func writeConsoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mixer.ErrRangeValidation):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, mixer.ErrUnknownDeviceType), errors.Is(err, mixer.ErrUnsupportedTemplate):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, mixer.ErrNotConnected), errors.Is(err, mixer.ErrConnectionClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, mixer.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeGatewayTime, err.Error())
	case errors.Is(err, mixer.ErrRequestPending), errors.Is(err, mixer.ErrAlreadyConnected):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, mixer.ErrNoValueReturned), errors.Is(err, mixer.ErrProtocolParse):
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
