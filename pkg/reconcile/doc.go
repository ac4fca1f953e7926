// Package reconcile keeps a local whiteboard document converged with
// its server copy.
//
// The reconciler is the client half of the sync protocol:
//
//   - Remote snapshots arrive over WebSocket and are handed to the
//     Apply callback after staleness checks: a snapshot is applied only
//     when its version exceeds the last applied version, or, when the
//     version is unknown, when its SHA-256 fingerprint differs.
//   - Local edits are reported with Mutated and flushed at interaction
//     boundaries with InteractionEnded. Flushes are coalesced: at most
//     one is in flight, and edits arriving mid-flight trigger exactly
//     one rerun.
//   - A flush travels over the live WebSocket (confirmed by the
//     server's ack) or falls back to PUT /documents/{id} when the
//     socket is down.
//   - Run resyncs on every (re)connect and on a periodic version poll,
//     healing any updates missed while offline.
//
// The library never interprets the snapshot; it is an opaque JSON blob
// owned by the caller. Conflict resolution is last-writer-wins by
// server-assigned version.
package reconcile
