package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wtx/internal/inventory"
	"github.com/desertthunder/wtx/internal/repositories"
	"github.com/desertthunder/wtx/internal/shared"
	"github.com/urfave/cli/v3"
)

// InventoryLoad parses a MapMyRun export CSV and registers its workouts.
//
// Loading is idempotent: rows already present in the store are ignored, so
// re-running with the same export (or an overlapping newer one) is safe.
func (r *Runner) InventoryLoad(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	csvPath := cmd.StringArg("csv")
	if csvPath == "" {
		csvPath = config.Inventory.CSVPath
	}
	if csvPath == "" {
		return fmt.Errorf("%w: provide a CSV path or set inventory.csv_path", shared.ErrMissingArgument)
	}

	r.logger.Info("parsing workout export", "path", csvPath)
	result, err := inventory.ParseFile(csvPath)
	if err != nil {
		return err
	}

	for _, skipped := range result.Skipped {
		r.logger.Warn("skipped row", "line", skipped.Line, "reason", skipped.Reason)
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repositories.NewWorkoutRepository(db)
	inserted, err := store.UpsertInventory(result.Workouts())
	if err != nil {
		return fmt.Errorf("failed to register workouts: %w", err)
	}

	r.logger.Info("inventory loaded", "parsed", len(result.Rows), "inserted", inserted, "skipped", len(result.Skipped))

	r.writePlain("✓ Inventory loaded from %s\n", csvPath)
	r.writePlain("  Parsed: %d workouts\n", len(result.Rows))
	r.writePlain("  New: %d\n", inserted)
	r.writePlain("  Already known: %d\n", len(result.Rows)-inserted)
	if len(result.Skipped) > 0 {
		r.writePlain("  Skipped rows: %d (see log)\n", len(result.Skipped))
	}
	return nil
}

// InventoryList prints every inventoried workout and its per-phase state.
func (r *Runner) InventoryList(ctx context.Context, cmd *cli.Command) error {
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

	if cmd.Bool("json") {
		return r.writeJSON(workouts, true)
	}

	r.writePlain("Workouts: %d\n\n", len(workouts))
	for i, w := range workouts {
		r.writePlain("%d. %d %s\n", i+1, w.WorkoutID, w.Name())
		r.writePlain("   fetch: %s · validate: %s · submit: %s\n", w.FetchState, w.ValidationState, w.SubmitState)
		if w.SubmitReason != "" {
			r.writePlain("   reason: %s\n", w.SubmitReason)
		}
	}
	return nil
}
