// Package handler provides HTTP request handlers for BoardMesh.
package handler

import (
	"encoding/json"
	"time"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses
// Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// DocumentResponse is the response body for GET /documents/{id}.
type DocumentResponse struct {
	ID        string          `json:"id"`
	Version   int64           `json:"version"`
	UpdatedAt int64           `json:"updated_at,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
}

// VersionResponse is the response body for GET /documents/{id}/version.
type VersionResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// SaveDocumentResponse is the response body for PUT /documents/{id}.
type SaveDocumentResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

// HealthResponse is the response body for GET /health and GET /ready.
type HealthResponse struct {
	Status string `json:"status"`
}
