// Package replica connects stores through wire messages.
//
// Handler answers one inbound message against a local store. Sync runs a
// pull then a push against a Peer and records per-peer watermarks in the
// local store so the next exchange only carries deltas.
package replica
