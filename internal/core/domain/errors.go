// Package domain defines the core domain models for BoardMesh.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
type DomainError struct {
	Code    string // Error code (e.g., "BM-DOC-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Authentication / Authorization Errors (AUTH)
//
// Both are fatal to a sync connection: the session closes with a policy
// violation code and the client must not retry with the same credential.
// ============================================================================

var (
	// ErrTokenMissing indicates no bearer token was provided.
	ErrTokenMissing = NewDomainError("BM-AUTH-4010", "token not provided")

	// ErrTokenInvalid indicates the bearer token did not resolve to a user.
	ErrTokenInvalid = NewDomainError("BM-AUTH-4011", "invalid token")

	// ErrAccessDenied indicates a valid identity without access to the document.
	ErrAccessDenied = NewDomainError("BM-AUTH-4030", "access denied")
)

// ============================================================================
// Document Errors (DOC)
// ============================================================================

var (
	// ErrDocumentNotFound indicates the requested document was not found.
	ErrDocumentNotFound = NewDomainError("BM-DOC-4040", "document not found")

	// ErrSnapshotTooLarge indicates the snapshot exceeds MaxSnapshotBytes.
	// Recoverable: the write is rejected, the connection stays open.
	ErrSnapshotTooLarge = NewDomainError("BM-DOC-4130", "snapshot exceeds size limit")

	// ErrEmptySnapshot indicates a write with no payload.
	ErrEmptySnapshot = NewDomainError("BM-DOC-4001", "empty snapshot")
)

// ============================================================================
// Sync Protocol Errors (SYNC)
// ============================================================================

var (
	// ErrMalformedMessage indicates a frame that could not be parsed.
	// Recoverable: the frame is dropped and the session continues.
	ErrMalformedMessage = NewDomainError("BM-SYNC-4000", "malformed message")

	// ErrUnknownMessage indicates a frame with an unrecognized type tag.
	// Recoverable, defends against forward/backward protocol skew.
	ErrUnknownMessage = NewDomainError("BM-SYNC-4001", "unknown message type")

	// ErrConnectionClosed indicates a send on a closed connection.
	ErrConnectionClosed = NewDomainError("BM-SYNC-4100", "connection closed")

	// ErrSendBufferFull indicates a peer too slow to keep up with fan-out.
	ErrSendBufferFull = NewDomainError("BM-SYNC-4101", "send buffer full")

	// ErrTransport indicates a transport failure on the client side.
	// Recoverable: triggers the fallback path or a deferred retry.
	ErrTransport = NewDomainError("BM-SYNC-5040", "transport failure")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("BM-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	// Recoverable for the writer: local dirty state is kept for retry.
	ErrStorageError = NewDomainError("BM-SYS-5001", "storage error")

	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("BM-SYS-4000", "bad request")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("BM-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("BM-ARG-1002", "missing required argument")
)
