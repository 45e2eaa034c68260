// Package store persists crownworks state in a single SQLite file and owns
// the media job queue semantics.
//
// Two tables share the database: content_entries mirrors JSON content blobs
// for the site (key/value), and media_jobs holds asynchronous media tasks.
// The Store manages connection setup (WAL mode, busy timeout), transactional
// schema creation with a version check, the atomic claim transition that
// hands a pending job to the worker, terminal transitions, and stall
// recycling. Treat this package as the single source of truth for job
// lifecycle semantics; new statuses or columns go through schema.sql and a
// schemaVersion bump.
package store
