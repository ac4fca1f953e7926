// Package main provides the entry point for boardmesh-cli.
//
// The CLI tool provides command-line access to a BoardMesh server:
//
//   - get: fetch a document snapshot or just its version
//   - put: replace a document snapshot from a file or stdin
//   - watch: follow a document live, printing each applied snapshot
//   - token: provision bearer tokens and storage encryption keys
//
// Usage:
//
//	boardmesh-cli [command] [flags]
//	boardmesh-cli --server http://localhost:5480 --token bmtk_... get bmdc-board
//	boardmesh-cli put bmdc-board snapshot.json
//	boardmesh-cli watch bmdc-board --out board.json
//	boardmesh-cli token new
package main
