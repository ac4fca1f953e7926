// Package main is the boardmesh-server entry point.
//
// Startup order: configuration (file, then BOARDMESH_ environment
// variables), logger, metrics, storage backend, document and auth
// services, the WebSocket sync server, and finally the HTTP router
// that fronts both the REST endpoints and the sync upgrade path.
// Shutdown reverses it: the HTTP listener stops first, the sync server
// drains every connection, and the storage backend closes last.
package main
