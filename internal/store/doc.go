// Package store is the embedded SQLite persistence engine for one replica.
//
// A store holds notes, user settings, and per-peer replication watermarks.
// Notes carry a per-record version that every local mutation increments;
// remote batches are applied with Merge using last-write-wins on that
// version.
//
// # Record lifecycle
//
//	Create (v1) -> Update (v+1)* -> Delete: tombstone (v+1)
//	                                  -> Restore (v+1)
//	                                  -> Delete again: row removed, local only
//
// Tombstones are listed and replicated so deletions reach other replicas.
//
// # Merge rules
//
//   - Unknown id: inserted verbatim
//   - Incoming version strictly greater: every field overwritten
//   - Otherwise discarded. Equal versions keep the local record, so
//     concurrent edits at the same version stay diverged.
//
// A batch is one transaction and is applied fully or not at all.
//
// # Deterministic ordering
//
//   - List: is_pinned DESC, updated_at DESC, id ASC
//   - ChangesSince: version ASC, id ASC
//
// Timestamps are stored as fixed-width UTC strings so text order equals
// time order.
//
// # Concurrency
//
// One connection behind one mutex. Every method acquires it through
// withConn or withTx. A panic while holding it poisons the store; later
// calls fail with KindPoisoned.
package store
