// Package models defines the domain entities of the plx scheduled playlist engine.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight structs describing external service data
//   - [Track] : one playlist item with its URI and the metadata reorder algorithms consume
//
// 2. Persistent Entities: database-backed rows, tagged for sqlx
//   - [User] : account with the encrypted refresh token and snapshot preference
//   - [Schedule] : a standing instruction to run a [JobType] against a target playlist
//   - [ExecutionRecord] : one row per run attempt; written once as running, then exactly once as terminal
//   - [ArchivePair] : binds a production playlist to its archive for rotation
//   - [Snapshot] : write-once capture of a playlist's track order
//   - [ActivityEntry] : user-facing activity log line
//
// JSON-valued columns use [StringList] and [Params], which implement [sql.Scanner] and [driver.Valuer].
package models
