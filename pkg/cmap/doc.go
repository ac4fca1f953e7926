// Package cmap provides a concurrent map implementation for BoardMesh.
//
// This package implements a sharded concurrent map used for the
// per-document connection registry and token tables:
//
//   - Sharding: murmur3-based shard selection with a configurable,
//     power-of-two shard count
//   - Fine-grained locking: per-shard RWMutex for minimal contention
//   - Iteration: safe iteration while holding read locks shard by shard
//
// Thread safety: all operations are safe for concurrent use. Read
// operations (Get, Has, Count, Range) take RLock, write operations
// (Set, Delete, Update, Pop) take Lock.
package cmap
