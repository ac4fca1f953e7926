// Package command provides CLI command definitions for boardmesh-cli.
//
// Commands:
//
//   - get: fetch a document snapshot or its version
//   - put: replace a document snapshot from a file or stdin
//   - watch: follow a document live via the sync protocol
//
// Global flags carry the server URL, bearer token, and client id; all
// of them can come from BOARDMESH_* environment variables.
package command
