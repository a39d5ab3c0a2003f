package main

import (
	"context"
	"database/sql"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/wtx/internal/formatter"
	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/repositories"
	"github.com/desertthunder/wtx/internal/shared"
	"github.com/desertthunder/wtx/internal/tasks"
	"github.com/desertthunder/wtx/internal/ui"
	"github.com/urfave/cli/v3"
)

// Status prints per-state record counts, or launches the interactive
// dashboard with --watch.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repositories.NewWorkoutRepository(db)

	if cmd.Bool("watch") {
		return r.watch(ctx, config, db, store)
	}

	summary, err := store.Summary()
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlainHeader("Migration Status")
	r.writePlain("Workouts: %d\n\n", summary.Total)

	r.writePlain("Fetch:\n")
	printCounts(r, map[string]int{
		"not started": summary.Fetch[models.FetchNotStarted],
		"in progress": summary.Fetch[models.FetchInProgress],
		"downloaded":  summary.Fetch[models.FetchSucceeded],
		"unavailable": summary.Fetch[models.FetchFailedPermanent],
		"retryable":   summary.Fetch[models.FetchFailedRetryable],
	})

	r.writePlain("Validation:\n")
	printCounts(r, map[string]int{
		"pending": summary.Validation[models.NotValidated],
		"valid":   summary.Validation[models.Valid],
		"invalid": summary.Validation[models.Invalid],
	})

	r.writePlain("Submit:\n")
	printCounts(r, map[string]int{
		"pending":   summary.Submit[models.NotSubmitted],
		"submitted": summary.Submit[models.Submitted],
		"duplicate": summary.Submit[models.SkippedDuplicate],
		"failed":    summary.Submit[models.SubmitFailedPermanent],
		"retryable": summary.Submit[models.SubmitFailedRetryable],
	})

	done := summary.Submit[models.Submitted] + summary.Submit[models.SkippedDuplicate]
	if summary.Total > 0 {
		r.writePlain("\nProgress: %d/%d (%.1f%%)\n", done, summary.Total, float64(done)/float64(summary.Total)*100)
	}
	return nil
}

// watch runs the interactive dashboard against the open database.
func (r *Runner) watch(ctx context.Context, config *shared.Config, db *sql.DB, store *repositories.WorkoutRepository) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/wtx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine := r.newEngine(config, db, tasks.Options{})
	model := ui.NewModel(ctx, store, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running dashboard: %w", err)
	}
	return nil
}

func printCounts(r *Runner, counts map[string]int) {
	order := []string{
		"not started", "in progress", "downloaded", "unavailable",
		"pending", "valid", "invalid",
		"submitted", "duplicate", "failed", "retryable",
	}
	for _, label := range order {
		if n, ok := counts[label]; ok && n > 0 {
			r.writePlain("  %-12s %d\n", label, n)
		}
	}
}

// Report exports the migration state in the requested format.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repositories.NewWorkoutRepository(db)

	workouts, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list workouts: %w", err)
	}
	summary, err := store.Summary()
	if err != nil {
		return fmt.Errorf("failed to read summary: %w", err)
	}

	report := &formatter.Report{Workouts: workouts, Summary: summary}
	output := cmd.String("output")

	var written string
	switch format := cmd.String("format"); format {
	case "csv":
		written, err = formatter.WriteCSVExport(report, output)
	case "markdown", "md":
		written, err = formatter.WriteMarkdownExport(report, output)
	case "text", "txt":
		written, err = formatter.WriteTextExport(report, output)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	r.writePlain("✓ Report written to %s\n", written)
	return nil
}
