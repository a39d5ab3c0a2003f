// package repositories provides the persistence layer for migration state.
//
// WorkoutRepository is the single source of truth for what has been fetched,
// validated, and submitted. Every state mutation is a single-row UPDATE whose
// WHERE clause enforces the pipeline's transition rules, so a crash at any
// point leaves each record in a well-defined, previously-committed state.
package repositories
