package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ebogdum/datarepo/locks"
	"github.com/ebogdum/datarepo/metadata"
	"github.com/ebogdum/datarepo/metrics"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classifyError maps a FileManager error onto an HTTP status and error code
func classifyError(err error, defaultStatusCode int) (int, string) {
	switch {
	case errors.Is(err, metadata.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, metadata.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, locks.ErrLockHeld):
		return http.StatusConflict, "DIRECTORY_LOCKED"
	case errors.Is(err, metadata.ErrUnsupported):
		return http.StatusNotImplemented, "UNSUPPORTED"
	case errors.Is(err, metadata.ErrConnection):
		return http.StatusBadGateway, "REMOTE_UNAVAILABLE"
	case errors.Is(err, metadata.ErrConfiguration):
		return http.StatusServiceUnavailable, "BACKEND_NOT_CONFIGURED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return defaultStatusCode, "INTERNAL_ERROR"
	}
}

// SendErrorResponse sends a standardized JSON error response
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error, defaultStatusCode int) {
	statusCode, errorCode := classifyError(err, defaultStatusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Code:    errorCode,
		Message: err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
		fmt.Fprintf(w, "Internal error occurred")
	}

	if statusCode >= http.StatusInternalServerError {
		metrics.ErrorsTotal.WithLabelValues("http", errorCode).Inc()
		logger.Error("Error response sent",
			zap.String("error_code", errorCode),
			zap.Int("status_code", statusCode),
			zap.Error(err))
		return
	}
	logger.Info("Error response sent",
		zap.String("error_code", errorCode),
		zap.Int("status_code", statusCode),
		zap.Error(err))
}

// SendJSONResponse sends a JSON response with any data structure
func SendJSONResponse(w http.ResponseWriter, data interface{}) {
	SendJSONResponseWithStatus(w, http.StatusOK, data)
}

// SendJSONResponseWithStatus sends a JSON response with an explicit status code
func SendJSONResponseWithStatus(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		fmt.Fprintf(w, `{"error":"Failed to encode response"}`)
	}
}

// decodeJSONBody decodes a bounded JSON request body into dst, rejecting unknown fields
func decodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return metadata.InvalidArgument("malformed request body: %v", err)
	}
	return nil
}
