// Package wire defines the replication messages exchanged between replicas
// and their JSON encoding.
//
// The message set is closed: PullRequest, PullResponse, PushUpdates and
// Ack. Consumers dispatch with Visit, whose Visitor has one method per
// message, so a new message type fails to compile everywhere it is
// handled.
//
// Encoding is an envelope with a type tag and an optional payload:
//
//	{"type":"PullRequest","payload":{"since_version":3}}
//	{"type":"Ack"}
//
// Transport is the caller's concern; this package only builds, encodes,
// decodes and validates messages.
package wire
