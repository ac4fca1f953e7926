// Package wsserver implements the WebSocket sync endpoint for BoardMesh.
//
// This package contains:
//
//   - server.go: endpoint wiring, upgrade handling, and Publish (the
//     shared persist-then-broadcast path)
//   - session.go: per-connection lifecycle and inbound frame dispatch
//   - conn.go: buffered, single-writer connection wrapper
//   - registry.go: sharded per-document connection registry
//   - hub.go: best-effort snapshot fan-out
//   - heartbeat.go: protocol-level liveness monitor
//
// Protocol model: clients send whole-document snapshots; the server
// persists each one under a monotonically increasing version and
// broadcasts it to the document's other connections. The writer gets
// an ack carrying the assigned version. Conflicts resolve last-writer-
// wins by arrival order at the server.
package wsserver
