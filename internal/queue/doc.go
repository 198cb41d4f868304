// Package queue persists delivery work items in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema migrations, stats queries,
// heartbeat tracking, stuck-item recovery, and the status transitions that
// mirror the public workflow enum. Queue items capture the shot metadata
// resolved from the tracking service plus per-frame delivery progress so
// stages can coordinate without additional state.
//
// The database is treated as transient storage for in-flight deliveries
// rather than a long-term archive. Treat this package as the single source of
// truth for queue semantics; when you add new statuses or metadata fields,
// add a migration under migrations/.
package queue
