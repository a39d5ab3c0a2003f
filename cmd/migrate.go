package main

import (
	"context"

	"github.com/desertthunder/wtx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Fetch downloads TCX artifacts for every workout still pending fetch.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(config, db, tasks.Options{Limit: int(cmd.Int("limit"))})

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	result, err := engine.RunFetch(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Fetch Results")
	r.writePlain("Processed: %d\n", result.Processed)
	r.writePlain("Downloaded: %d\n", result.Succeeded)
	r.writePlain("Permanently unavailable: %d\n", result.FailedPermanent)
	r.writePlain("Will retry: %d\n", result.FailedRetryable)
	return nil
}

// Validate checks every downloaded, not-yet-validated artifact.
func (r *Runner) Validate(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(config, db, tasks.Options{Limit: int(cmd.Int("limit"))})

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	result, err := engine.RunValidate(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Validation Results")
	r.writePlain("Processed: %d\n", result.Processed)
	r.writePlain("Valid: %d\n", result.Valid)
	r.writePlain("Invalid: %d\n", result.Invalid)
	return nil
}

// Submit uploads validated workouts to Strava.
func (r *Runner) Submit(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(config, db, tasks.Options{
		Limit:     int(cmd.Int("limit")),
		BatchSize: int(cmd.Int("batch-size")),
		DryRun:    cmd.Bool("dry-run"),
	})

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	result, err := engine.RunSubmit(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.printSubmitResult(result, cmd.Bool("dry-run"))
	return nil
}

// RunAll executes the full fetch → validate → submit pipeline.
func (r *Runner) RunAll(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := r.newEngine(config, db, tasks.Options{
		Limit:     int(cmd.Int("limit")),
		BatchSize: int(cmd.Int("batch-size")),
		DryRun:    cmd.Bool("dry-run"),
	})

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go r.drainProgress(progress, done)

	result, err := engine.Run(ctx, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Migration Results")
	r.writePlain("Fetched: %d (unavailable %d, retryable %d)\n",
		result.Fetch.Succeeded, result.Fetch.FailedPermanent, result.Fetch.FailedRetryable)
	r.writePlain("Validated: %d valid, %d invalid\n", result.Validate.Valid, result.Validate.Invalid)
	r.printSubmitResult(&result.Submit, cmd.Bool("dry-run"))
	r.writePlain("\nDestination API calls this run: %d\n", engine.Budget().Calls())
	return nil
}

func (r *Runner) printSubmitResult(result *tasks.SubmitResult, dryRun bool) {
	if dryRun {
		r.writePlainHeader("Dry Run")
		r.writePlain("Would upload: %d workouts\n", result.WouldSubmit)
		r.writePlain("Blocked (missing artifact): %d\n", result.FailedPermanent)
		return
	}

	r.writePlainHeader("Submit Results")
	r.writePlain("Uploaded: %d\n", result.Submitted)
	r.writePlain("Skipped duplicates: %d\n", result.Skipped)
	r.writePlain("Failed permanently: %d\n", result.FailedPermanent)
	r.writePlain("Will retry: %d\n", result.FailedRetryable)
}
