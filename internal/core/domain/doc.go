// Package domain defines the core domain models for BoardMesh.
//
// This package contains the document entity, the wire message union,
// and the error taxonomy shared by the server and the client library:
//
//   - document.go: Document entity and id generation
//   - message.go: Typed wire frames (ping/pong/snapshot/ack/error)
//   - errors.go: DomainError with structured error codes
//
// Domain models are pure value objects without IO dependencies
// or framework coupling.
package domain
