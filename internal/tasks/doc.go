// Package tasks runs schedules.
//
// # Execution
//
// [Executor] is the single place a schedule run is turned into persisted state. Each run moves through
//
//	Load → (missing, disabled or locked? skip) → create running ExecutionRecord → resolve client → dispatch → record success | record failure
//
// Job types are dispatched through a table keyed by [models.JobType]. Operation failures, client
// resolution failures and panics all end in a failed ExecutionRecord; a failure while recording a
// failure is logged and swallowed.
//
// Two entry points share that path:
//
//  1. [Executor.Execute] : the scheduled path; it never returns an error
//  2. [Executor.ExecuteNow] : the "run now" path; it checks ownership, reports the fresh schedule
//     status and returns a [*RunFailedError] when the run failed
//
// # Batches and triggers
//
// [Executor.RunBatch] runs several schedules with bounded concurrency and reports progress over a
// channel without blocking. [Trigger] keeps cron entries in step with the enabled schedules and calls
// [Executor.Execute] when an entry fires.
package tasks
