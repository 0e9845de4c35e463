// Package model defines the record shapes shared by the store, the wire
// envelope and the CLI.
//
// This package contains value types only. Every other internal package
// imports model; model imports nothing internal.
//
// Key design constraints:
//   - Note.Version is the only merge arbiter; timestamps never decide a merge
//   - Values handed to callers are owned copies (see Note.Clone)
//   - All JSON tags use snake_case and are part of the sync wire contract
//   - UserSettings carries no version and never takes part in a merge
package model
