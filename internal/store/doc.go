// Package store persists chunked matching jobs in SQLite and exposes the
// atomic operations that drive their lifecycle.
//
// Two parallel workflows share the same progress semantics: reference videos
// with register chunks (registration) and verify sessions with verify chunks
// (verification). For both, completing a chunk marks the chunk row done and
// advances the owning job's completed counter in one transaction, returning
// the post-increment (completed, total) pair. Exactly one caller observes
// completed == total; that caller triggers finalization. This is the fan-in
// guarantee the pipeline depends on, so never split the increment and the
// read into separate statements.
//
// Frame and audio fingerprints are write-once rows owned by their job and
// removed with it via foreign-key cascade. A merged audio fingerprint
// (chunk_index NULL) supersedes the per-chunk rows once registration
// finalizes.
package store
