// Package chunkstore persists recorded media chunks and session records in
// SQLite.
//
// Two tables back the store: sessions, keyed by session id and holding the
// mutable session record as JSON, and video_chunks, an append-only table with
// an auto-assigned id and indexes on session_id and (session_id, type,
// timestamp). Chunk reads always re-sort by arrival timestamp because
// concurrent writers do not guarantee that insertion order matches capture
// order. Size, count and first-chunk queries never read payload bytes.
//
// Opener shares one lazily opened Store across concurrent callers and allows
// a fresh attempt after a failed open. Schema changes bump schemaVersion;
// older databases are rejected with ErrSchemaMismatch.
package chunkstore
