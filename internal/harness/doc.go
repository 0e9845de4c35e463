// Package harness runs replication scenarios described in YAML.
//
// A scenario names a set of devices, each backed by a fresh in-memory
// store with a deterministic clock and id sequence ("a-0001", "b-0001",
// ...). Steps run local operations (create, update, delete, restore) and
// exchanges between devices:
//
//   - transfer: the sender's changes after a version are encoded as a
//     PushUpdates message, decoded, validated, and merged into the receiver
//   - sync: a full pull/push through replica.Sync with persisted watermarks
//
// Every exchange goes through the JSON wire codec, so scenarios cover the
// same path a networked transport would.
//
// Assertions inspect final state: a note's fields, a note's absence, the
// record count, and whether devices converged (equal digests) or diverged.
//
// # Golden files
//
// RunWithGolden snapshots the step trace and every device's final records
// as canonical JSON under testdata/golden. Timestamps are left out of the
// snapshot; ids and versions are deterministic.
//
// Example scenario:
//
//	name: create_replicate_update
//	description: A note created on one device reaches the other and back
//	devices: [a, b]
//	steps:
//	  - {op: create, device: a, as: meeting, title: Meeting Notes, content: Discuss sync logic}
//	  - {op: transfer, device: a, to: b, since: 0}
//	assertions:
//	  - {type: converged, devices: [a, b]}
package harness
