// Package handler provides HTTP request handlers for BoardMesh.
//
// This package contains:
//
//   - handler.go: route registration and the response envelope plumbing
//   - document.go: document read endpoints and the PUT write fallback
//   - health.go: liveness and readiness probes
//   - types.go: request/response body types
//
// The PUT fallback shares its write path (the Publisher interface)
// with the WebSocket server, so a snapshot accepted over REST is
// validated, versioned, and broadcast exactly like one accepted over
// a sync connection.
package handler
