// Package types defines the wire types shared by the HTTP handlers and
// middleware.
package types

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse is the JSON error payload returned by every endpoint.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// Error codes used across the API.
const (
	CodeEmptyMessage     = "EMPTY_MESSAGE"
	CodeEmptyAIResponse  = "EMPTY_AI_RESPONSE"
	CodeAIProcessing     = "AI_PROCESSING_FAILED"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRequestTimeout   = "REQUEST_TIMEOUT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// NewErrorResponse builds an error payload stamped with the current time.
func NewErrorResponse(status int, code, message, path string) *ErrorResponse {
	return &ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Code:      code,
		Message:   message,
		Path:      path,
	}
}

// WriteError writes an ErrorResponse for the given request.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(status, code, message, r.URL.Path))
}
