// package tasks implements the migration sync engine.
//
// MigrationEngine drives workouts through fetch, validate, and submit phases,
// consulting and updating the record store at every step so that any phase
// can be interrupted and resumed without losing or duplicating work.
// Operations emit progress updates via channels for non-blocking status
// reporting to the CLI layer.
package tasks
