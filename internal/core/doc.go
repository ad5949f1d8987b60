// Package core runs stitches and Monte-Carlo simulations on behalf of the
// command-line tools and the HTTP server.
//
// # Service
//
// [Service] is the entry point. Every job goes through it so that:
//
//   - concurrent jobs are bounded by a [JobLimiter] (server only),
//   - finished runs are recorded in the optional run history,
//   - sample counts stay under the configured cap.
//
// History is best effort. When no store is configured, or an insert
// fails, the job result is still returned and the run id is uuid.Nil.
// [Service.StartRetentionScheduler] prunes old runs in the background.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each category has a code prefix for support reference:
//
//   - STI: stitch errors (row length, slices, uneven inputs)
//   - SIM: simulation parameters
//   - FILE: missing, empty, oversized or unparseable files
//   - RUN: run history
//   - JOB: busy, cancelled or timed out jobs
package core
