// Package storage provides document snapshot persistence for BoardMesh.
//
// Three backends implement service.DocumentRepository:
//
//   - MemoryStore: sharded in-process map, for tests and single-node dev
//   - BadgerStore: embedded Badger v3 KV store with optional at-rest
//     encryption and background value-log GC
//   - PostgresStore: pgx-backed store for deployments that already run
//     PostgreSQL
//
// All backends assign versions atomically: concurrent writers to the
// same document observe strictly increasing versions with no gaps.
package storage
