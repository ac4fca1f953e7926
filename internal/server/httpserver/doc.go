// Package httpserver provides the HTTP server for BoardMesh.
//
// This package implements the external API using stdlib net/http:
//
//   - Document endpoints: /documents/{id}, /documents/{id}/version
//   - Sync upgrade endpoint: /ws/documents/{id}
//   - Health endpoints: /health, /ready, /metrics
//
// Features:
//
//   - TLS support
//   - Middleware chain: Auth, RateLimit, Audit, CORS, RequestID
//   - Graceful shutdown with configurable timeout
//   - Prometheus metrics integration
package httpserver
