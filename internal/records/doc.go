// Package records persists preview and archive records in SQLite and enforces
// the record lifecycle state machine.
//
// A preview record is the mutable representation of an uploaded photo as it
// moves through analysis. State transitions are linear and guarded: every
// advance is a single UPDATE conditioned on the expected prior state, so a
// record can never skip a stage and readers always observe states in order.
// Archiving converts a preview into an immutable archive record inside one
// transaction, leaving behind a tombstone that maps the consumed preview id
// to its archive id for idempotent duplicate-commit detection.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add states or record fields, update schema.sql and bump
// schemaVersion.
package records
