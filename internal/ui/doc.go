// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for workout migration:
//  1. [WorkoutListView] : Browse inventoried workouts and their per-phase states
//  2. [ConfirmView] : Confirm the migration run
//  3. [RunView] : Monitor real-time progress updates across fetch, validate, and submit
//  4. [ResultView] : Display per-phase outcome counts
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the MigrationEngine, providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
