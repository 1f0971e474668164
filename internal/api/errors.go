package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/arm"
	"github.com/ArranJacques/paplin/internal/command"
	"github.com/ArranJacques/paplin/internal/move"
)

// APIError represents an API-layer error with HTTP status code.
type APIError struct {
	Code       string
	Message    string
	Details    interface{}
	StatusCode int
}

// API error codes for transport/security/lookup conditions
var (
	ErrBadRequest        = errors.New("BAD_REQUEST")
	ErrUnauthorizedError = errors.New("UNAUTHORIZED")
	ErrForbiddenError    = errors.New("FORBIDDEN")
	ErrNotFoundError     = errors.New("NOT_FOUND")
)

// ToAPIError converts an error to an API error with HTTP status code and JSON body.
func ToAPIError(err error) (int, []byte) {
	if err == nil {
		return http.StatusOK, nil
	}

	var apiErr *APIError
	var vendorErr *adapter.VendorError

	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, marshalErrorResponse(apiErr.Code, apiErr.Message, apiErr.Details)
	}

	// Engine and lookup errors
	switch {
	case errors.Is(err, command.ErrSequenceInProgress):
		return http.StatusConflict, marshalErrorResponse("SEQUENCE_IN_PROGRESS", "A sequence is already running on this arm", nil)
	case errors.Is(err, command.ErrSequenceStopped):
		return http.StatusConflict, marshalErrorResponse("SEQUENCE_STOPPED", "The sequence was stopped before it completed", nil)
	case errors.Is(err, move.ErrUnknownMotion):
		return http.StatusBadRequest, marshalErrorResponse("UNKNOWN_MOTION", err.Error(), map[string]interface{}{
			"motions": move.Names(),
		})
	case errors.Is(err, arm.ErrNotFound), errors.Is(err, ErrNotFoundError):
		return http.StatusNotFound, marshalErrorResponse("NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, marshalErrorResponse("TIMEOUT", "Operation timed out", nil)
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, marshalErrorResponse("CANCELLED", "Operation cancelled", nil)
	}

	if errors.As(err, &vendorErr) {
		code, statusCode := mapAdapterError(vendorErr.Code)
		message := getErrorMessage(vendorErr.Code, vendorErr.Original)
		return statusCode, marshalErrorResponse(code, message, vendorErr.Details)
	}

	if errors.Is(err, adapter.ErrInvalidRange) {
		return http.StatusBadRequest, marshalErrorResponse("INVALID_RANGE", getErrorMessage(adapter.ErrInvalidRange, err), nil)
	}
	if errors.Is(err, adapter.ErrBusy) {
		return http.StatusServiceUnavailable, marshalErrorResponse("BUSY", getErrorMessage(adapter.ErrBusy, err), nil)
	}
	if errors.Is(err, adapter.ErrUnavailable) {
		return http.StatusServiceUnavailable, marshalErrorResponse("UNAVAILABLE", getErrorMessage(adapter.ErrUnavailable, err), nil)
	}
	if errors.Is(err, adapter.ErrInternal) {
		return http.StatusInternalServerError, marshalErrorResponse("INTERNAL", getErrorMessage(adapter.ErrInternal, err), nil)
	}

	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest, marshalErrorResponse("BAD_REQUEST", "Malformed or missing required parameter", nil)
	}
	if errors.Is(err, ErrUnauthorizedError) {
		return http.StatusUnauthorized, marshalErrorResponse("UNAUTHORIZED", "Authentication required", nil)
	}
	if errors.Is(err, ErrForbiddenError) {
		return http.StatusForbidden, marshalErrorResponse("FORBIDDEN", "Insufficient permissions", nil)
	}

	return http.StatusInternalServerError, marshalErrorResponse("INTERNAL", "Internal server error", map[string]interface{}{
		"original": err.Error(),
	})
}

// mapAdapterError maps adapter error codes to API error codes and HTTP status codes.
func mapAdapterError(adapterErr error) (string, int) {
	switch {
	case errors.Is(adapterErr, adapter.ErrInvalidRange):
		return "INVALID_RANGE", http.StatusBadRequest
	case errors.Is(adapterErr, adapter.ErrBusy):
		return "BUSY", http.StatusServiceUnavailable
	case errors.Is(adapterErr, adapter.ErrUnavailable):
		return "UNAVAILABLE", http.StatusServiceUnavailable
	default:
		return "INTERNAL", http.StatusInternalServerError
	}
}

// getErrorMessage returns a user-friendly error message for the given error.
func getErrorMessage(code error, original error) string {
	switch {
	case errors.Is(code, adapter.ErrInvalidRange):
		return "Parameter value is outside the allowed range"
	case errors.Is(code, adapter.ErrBusy):
		return "Arm is busy, please retry with backoff"
	case errors.Is(code, adapter.ErrUnavailable):
		return "Arm is temporarily unavailable"
	case errors.Is(code, adapter.ErrInternal):
		return "Internal server error"
	default:
		if original != nil {
			return original.Error()
		}
		return "Unknown error"
	}
}

func marshalErrorResponse(code, message string, details interface{}) []byte {
	response := ErrorResponse(code, message, details)

	jsonBytes, err := json.Marshal(response)
	if err != nil {
		fallback := map[string]interface{}{
			"result":        "error",
			"code":          "INTERNAL",
			"message":       "Failed to marshal error response",
			"correlationId": generateCorrelationID(),
		}
		jsonBytes, _ := json.Marshal(fallback)
		return jsonBytes
	}
	return jsonBytes
}

// NewAPIError creates a new API error.
func NewAPIError(code string, message string, statusCode int, details interface{}) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: statusCode,
	}
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// writeAPIError writes err using the ToAPIError mapping.
func writeAPIError(w http.ResponseWriter, err error) {
	status, body := ToAPIError(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
