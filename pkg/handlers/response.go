package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
)

// maxBodyBytes bounds request bodies accepted by the JSON decoders.
const maxBodyBytes = 1 << 20

// ApiResponse is the envelope for every successful response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorBody is written for failed requests. Fields is set for validation failures.
type ErrorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return writeErrorBody(w, statusCode, ErrorBody{Error: errorCode, Message: message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body ErrorBody) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}

// writeData wraps data in a successful ApiResponse.
func writeData(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeServiceError maps a service error onto a status code:
// validation 400, not found 404, conflict 409, anything else 500.
// Only 500s are logged at error level; op names the failed operation.
func writeServiceError(w http.ResponseWriter, err error, op string, logger *zap.Logger, fields ...zap.Field) {
	body := ErrorBody{Message: err.Error()}
	var status int

	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body.Error = "validation_failed"
		body.Fields = ve.Fields
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
		body.Error = "validation_failed"
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
		body.Error = "not_found"
	case errors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
		body.Error = "conflict"
	default:
		status = http.StatusInternalServerError
		body.Error = "internal_error"
		body.Message = "Internal server error"
		logger.Error("Failed to "+op, append(fields, zap.Error(err))...)
	}

	if status != http.StatusInternalServerError {
		logger.Debug("Request rejected",
			append(fields, zap.String("op", op), zap.Int("status", status), zap.Error(err))...)
	}

	if err := writeErrorBody(w, status, body); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeBody decodes the JSON request body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}
	return true
}
