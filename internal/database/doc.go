// Package database provides SQLite-based storage for fetched documents.
//
// DocumentDB keeps three tables:
//   - documents: the latest fetch of every URL, keyed by content ID
//   - fetch_failures: one row per failed fetch, with its error kind
//   - batches: one summary row per batch run
//
// The database is a single file opened through modernc.org/sqlite, so no
// cgo toolchain is needed. WAL mode is enabled by default.
package database
