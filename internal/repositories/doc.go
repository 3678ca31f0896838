// Package repositories implements SQL persistence for all domain entities on top of sqlx.
//
// Queries are written with `?` placeholders and rebound for the active driver, so the same
// repositories run against SQLite (the default) and Postgres (pgx).
//
// Key Implementations:
//   - [UserRepository] : users, the encrypted refresh token, and the auto-snapshot preference
//   - [ScheduleRepository] : schedules and their last-run bookkeeping
//   - [ExecutionRepository] : per-run execution history with guarded terminal updates
//   - [ArchivePairRepository] : production to archive playlist bindings used by rotation
//   - [SnapshotRepository] : write-once playlist snapshots
//   - [ActivityRepository] : the user-facing activity log
//
// Missing rows are reported as [shared.ErrNotFound].
package repositories
