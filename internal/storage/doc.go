// Package storage persists timeline and media state in SQLite and implements
// the timeline.Store and media.Store read interfaces the compiler consumes.
//
// The database lives at <data_dir>/reelplan.db, runs in WAL mode with foreign
// keys enforced, and retries briefly on SQLITE_BUSY so the CLI and concurrent
// tests can share a file. Write methods are upserts keyed by entity ID; they
// back snapshot import and test fixtures.
package storage
