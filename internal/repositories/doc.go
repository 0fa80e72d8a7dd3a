// Package repositories implements SQLite persistence for sync history.
//
// [PassRepository] stores one row per reconciliation pass in passes and the per-file outcomes of that pass in
// track_events. It implements models.Repository for the CRUD surface and RecordPass for the sync engine.
//
// Passes support soft deletes via deleted_at timestamps and deleted rows are excluded from queries.
//
// Sequence numbers provide stable ordering independent of UUIDs and clock skew between machines.
// The [NextSequence] function atomically increments the counter in passes_sequence.
package repositories
