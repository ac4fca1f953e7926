// Package logger provides structured logging for BoardMesh.
//
// This package wraps log/slog for structured logging:
//
//   - logger.go: Logger configuration and initialization
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Dynamic log level filtering
//   - Automatic masking of bmtk_ bearer tokens
//   - Context propagation for request tracing
package logger
