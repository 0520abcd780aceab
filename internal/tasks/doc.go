// Package tasks implements favorites transfer runs between streaming
// accounts.
//
// The core type is [Engine], which snapshots the source account's
// favorites and replicates them into the target account one item at a
// time: directly when both accounts live on the same provider, through
// search-and-match when they do not. Runs survive individual item
// failures, stop cooperatively at item boundaries and end with a
// [Report] of every attempted item.
//
// Operations emit [ProgressUpdate] values via channels for non-blocking
// status reporting to the CLI and TUI layers.
package tasks
