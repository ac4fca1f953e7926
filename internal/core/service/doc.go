// Package service provides domain services for BoardMesh.
//
// Domain services contain pure business logic and orchestrate operations
// on domain models. They define interfaces for storage dependencies,
// allowing for dependency injection and testability.
//
// This package contains:
//
//   - DocumentService: Snapshot reads and validated, version-assigning writes
//   - AuthService: Bearer token verification and per-document authorization
//
// Services are stateless and thread-safe. DocumentService is the single
// write path for snapshots, so the size cap and JSON validation apply
// identically to every transport.
package service
