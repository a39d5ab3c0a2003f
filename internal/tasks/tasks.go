package tasks

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/repositories"
	"github.com/desertthunder/wtx/internal/services"
	"github.com/desertthunder/wtx/internal/shared"
	"github.com/desertthunder/wtx/internal/tcx"
)

// Options contains pacing, batching, and duplicate-matching configuration for
// the engine.
type Options struct {
	ArtifactDir      string        // Where fetched TCX files are persisted
	Limit            int           // Max records per phase invocation, 0 for all
	BatchSize        int           // Submit batch size
	BatchPause       time.Duration // Pause between submit batches
	UploadPause      time.Duration // Pause between uploads within a batch
	MaxFetchAttempts int           // Attempts per fetch before failed_retryable
	PollTimeout      time.Duration // Deadline for resolving one upload handle
	Cooldown         time.Duration // Rate-limit fallback cooldown
	DupWindow        time.Duration // Half-width of the duplicate search window
	DupDurationTol   float64       // Duration tolerance in seconds
	DupDistanceTol   float64       // Distance tolerance in meters
	DryRun           bool          // Replace destination-mutating calls with no-ops
}

func (o Options) withDefaults() Options {
	if o.ArtifactDir == "" {
		o.ArtifactDir = "data/tcx"
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 25
	}
	if o.MaxFetchAttempts <= 0 {
		o.MaxFetchAttempts = 3
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 5 * time.Minute
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 15 * time.Minute
	}
	if o.DupWindow <= 0 {
		o.DupWindow = 24 * time.Hour
	}
	if o.DupDurationTol <= 0 {
		o.DupDurationTol = 60
	}
	if o.DupDistanceTol <= 0 {
		o.DupDistanceTol = 161
	}
	return o
}

// FetchResult summarizes one fetch phase invocation.
type FetchResult struct {
	Processed       int
	Succeeded       int
	FailedPermanent int
	FailedRetryable int
}

// ValidateResult summarizes one validate phase invocation.
type ValidateResult struct {
	Processed int
	Valid     int
	Invalid   int
}

// SubmitResult summarizes one submit phase invocation.
type SubmitResult struct {
	Processed       int
	Submitted       int
	Skipped         int
	FailedPermanent int
	FailedRetryable int
	WouldSubmit     int // Dry-run only
}

// RunResult aggregates all three phases of a full pipeline run.
type RunResult struct {
	Fetch    FetchResult
	Validate ValidateResult
	Submit   SubmitResult
}

// MigrationEngine orchestrates the fetch → validate → submit pipeline.
//
// Processing within a phase is strictly sequential by workout id: the rate
// budget is shared mutable state that must be consulted and updated as one
// unit per destination call, and parallel calls would only trip the remote
// volume limits faster.
type MigrationEngine struct {
	store  *repositories.WorkoutRepository
	audit  *repositories.AuditRepository
	source services.Source
	dest   services.Destination
	budget *RateBudget
	logger *log.Logger
	opts   Options

	sleep func(context.Context, time.Duration) error
}

// NewMigrationEngine creates a new MigrationEngine with the provided dependencies.
func NewMigrationEngine(store *repositories.WorkoutRepository, audit *repositories.AuditRepository, source services.Source, dest services.Destination, logger *log.Logger, opts Options) *MigrationEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	opts = opts.withDefaults()

	return &MigrationEngine{
		store:  store,
		audit:  audit,
		source: source,
		dest:   dest,
		budget: NewRateBudget(opts.Cooldown),
		logger: logger,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// Budget exposes the run's rate budget, mainly for tests and reporting.
func (e *MigrationEngine) Budget() *RateBudget { return e.budget }

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MigrationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run executes the full pipeline: fetch, validate, submit.
func (e *MigrationEngine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*RunResult, error) {
	result := &RunResult{}

	fetch, err := e.RunFetch(ctx, progress)
	result.Fetch = *fetch
	if err != nil {
		return result, err
	}

	validate, err := e.RunValidate(ctx, progress)
	result.Validate = *validate
	if err != nil {
		return result, err
	}

	submit, err := e.RunSubmit(ctx, progress)
	result.Submit = *submit
	return result, err
}

// Summary returns current per-state record counts from the store.
func (e *MigrationEngine) Summary() (*models.Summary, error) {
	return e.store.Summary()
}

// RunFetch downloads artifacts for every workout still pending fetch.
//
// Records already in a terminal fetch state are never selected, so re-running
// the phase after an interruption resumes exactly where it left off.
func (e *MigrationEngine) RunFetch(ctx context.Context, progress chan<- ProgressUpdate) (*FetchResult, error) {
	result := &FetchResult{}

	if e.source == nil {
		return result, fmt.Errorf("%w: source service not initialized", shared.ErrServiceUnavailable)
	}

	pending, err := e.store.NextPending(models.StepFetch, e.opts.Limit)
	if err != nil {
		return result, err
	}

	total := len(pending)
	for i, w := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, fetchUpdate(i+1, total, w.WorkoutID))
		result.Processed++

		state, err := e.fetchOne(ctx, w)
		if err != nil {
			// PermanentGlobal: a rejected credential fails every remaining
			// record, so stop here. The in-flight record stays in_progress
			// and is retried once the credential is reacquired.
			return result, err
		}

		switch state {
		case models.FetchSucceeded:
			result.Succeeded++
		case models.FetchFailedPermanent:
			result.FailedPermanent++
		case models.FetchFailedRetryable:
			result.FailedRetryable++
		}
	}

	e.logger.Info("fetch phase complete", "processed", result.Processed, "succeeded", result.Succeeded,
		"failed_permanent", result.FailedPermanent, "failed_retryable", result.FailedRetryable)
	return result, nil
}

// fetchOne downloads and persists a single artifact, returning the fetch
// state it recorded. A non-nil error aborts the whole phase.
func (e *MigrationEngine) fetchOne(ctx context.Context, w *models.Workout) (models.FetchState, error) {
	if w.FetchState == models.FetchSucceeded {
		return models.FetchSucceeded, nil
	}

	if _, err := e.store.UpdateFetchState(w.WorkoutID, models.FetchInProgress, ""); err != nil {
		return "", err
	}

	var body []byte
	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxFetchAttempts; attempt++ {
		body, lastErr = e.source.FetchArtifact(ctx, w.WorkoutID)
		if lastErr == nil {
			break
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		apiErr, ok := services.AsAPIError(lastErr)
		if !ok {
			break
		}

		switch apiErr.Kind {
		case services.KindAuthInvalid:
			e.logger.Error("source credential rejected, aborting fetch phase", "workout", w.WorkoutID)
			return "", fmt.Errorf("%w: %s", shared.ErrAuthInvalid, apiErr.Message)
		case services.KindNotFound, services.KindPermanent, services.KindDuplicate:
			e.logger.Warn("workout permanently unavailable", "workout", w.WorkoutID, "reason", apiErr.Message)
			if _, err := e.store.UpdateFetchState(w.WorkoutID, models.FetchFailedPermanent, ""); err != nil {
				return "", err
			}
			return models.FetchFailedPermanent, nil
		default:
			if attempt < e.opts.MaxFetchAttempts {
				backoff := time.Duration(1<<uint(attempt-1)) * time.Second
				e.logger.Debug("transient fetch error, backing off", "workout", w.WorkoutID, "attempt", attempt, "backoff", backoff)
				if err := e.sleep(ctx, backoff); err != nil {
					return "", err
				}
			}
		}
	}

	if lastErr != nil {
		e.logger.Warn("fetch failed after retries", "workout", w.WorkoutID, "error", lastErr)
		if _, err := e.store.UpdateFetchState(w.WorkoutID, models.FetchFailedRetryable, ""); err != nil {
			return "", err
		}
		return models.FetchFailedRetryable, nil
	}

	path, err := e.persistArtifact(w.WorkoutID, body)
	if err != nil {
		// HTTP succeeded but the disk write did not; record retryable so
		// the next pass downloads it again.
		e.logger.Error("failed to persist artifact", "workout", w.WorkoutID, "error", err)
		if _, err := e.store.UpdateFetchState(w.WorkoutID, models.FetchFailedRetryable, ""); err != nil {
			return "", err
		}
		return models.FetchFailedRetryable, nil
	}

	if _, err := e.store.UpdateFetchState(w.WorkoutID, models.FetchSucceeded, path); err != nil {
		return "", err
	}
	return models.FetchSucceeded, nil
}

// persistArtifact writes the artifact through a temp file, fsyncs, and
// renames, so the recorded path always refers to a fully flushed file.
func (e *MigrationEngine) persistArtifact(workoutID int64, body []byte) (string, error) {
	if err := os.MkdirAll(e.opts.ArtifactDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	path := filepath.Join(e.opts.ArtifactDir, fmt.Sprintf("workout_%d.tcx", workoutID))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to flush artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	return path, nil
}

// RunValidate validates every fetched, not-yet-validated artifact.
//
// Validation is local and deterministic; it performs no network access.
func (e *MigrationEngine) RunValidate(ctx context.Context, progress chan<- ProgressUpdate) (*ValidateResult, error) {
	result := &ValidateResult{}

	pending, err := e.store.NextPending(models.StepValidate, e.opts.Limit)
	if err != nil {
		return result, err
	}

	total := len(pending)
	for i, w := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, validateUpdate(i+1, total, w.WorkoutID))
		result.Processed++

		mapped := tcx.MapActivityType(w.ActivityType)

		data, err := os.ReadFile(w.ArtifactPath)
		if err != nil {
			e.logger.Error("artifact unreadable", "workout", w.WorkoutID, "path", w.ArtifactPath, "error", err)
			if _, err := e.store.UpdateValidation(w.WorkoutID, models.Invalid, models.ReasonCorrupt, mapped, 0, 0); err != nil {
				return result, err
			}
			result.Invalid++
			continue
		}

		res := tcx.Validate(data)
		if !res.Valid {
			e.logger.Warn("validation failed", "workout", w.WorkoutID, "reason", res.Reason, "path", w.ArtifactPath)
			if _, err := e.store.UpdateValidation(w.WorkoutID, models.Invalid, res.Reason, mapped, 0, 0); err != nil {
				return result, err
			}
			result.Invalid++
			continue
		}

		if _, err := e.store.UpdateValidation(w.WorkoutID, models.Valid, "", mapped, res.DurationSec, res.DistanceM); err != nil {
			return result, err
		}
		result.Valid++
	}

	e.logger.Info("validate phase complete", "processed", result.Processed, "valid", result.Valid, "invalid", result.Invalid)
	return result, nil
}

// RunSubmit uploads every validated, not-yet-submitted workout in batches.
//
// A failure on one record never aborts the batch; each record's outcome is
// persisted individually. Only a rejected credential stops the phase.
func (e *MigrationEngine) RunSubmit(ctx context.Context, progress chan<- ProgressUpdate) (*SubmitResult, error) {
	result := &SubmitResult{}

	if e.dest == nil {
		return result, fmt.Errorf("%w: destination service not initialized", shared.ErrServiceUnavailable)
	}

	pending, err := e.store.NextPending(models.StepSubmit, e.opts.Limit)
	if err != nil {
		return result, err
	}

	total := len(pending)
	for i, w := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		e.sendProgress(progress, submitUpdate(i+1, total, w.WorkoutID, w.Name()))
		result.Processed++

		if err := e.submitOne(ctx, progress, w, i+1, total, result); err != nil {
			return result, err
		}

		if i < total-1 && e.opts.UploadPause > 0 && !e.opts.DryRun {
			if err := e.sleep(ctx, e.opts.UploadPause); err != nil {
				return result, err
			}
		}
		if (i+1)%e.opts.BatchSize == 0 && i < total-1 && e.opts.BatchPause > 0 && !e.opts.DryRun {
			e.logger.Info("batch complete, pausing", "batch", (i+1)/e.opts.BatchSize, "pause", e.opts.BatchPause)
			if err := e.sleep(ctx, e.opts.BatchPause); err != nil {
				return result, err
			}
		}
	}

	e.logger.Info("submit phase complete", "processed", result.Processed, "submitted", result.Submitted,
		"skipped_duplicate", result.Skipped, "failed_permanent", result.FailedPermanent,
		"failed_retryable", result.FailedRetryable, "would_submit", result.WouldSubmit)
	return result, nil
}

// submitOne runs the two-phase duplicate avoidance and upload for a single
// workout. A non-nil error aborts the whole phase (PermanentGlobal or
// cancellation); per-record failures are persisted and counted instead.
func (e *MigrationEngine) submitOne(ctx context.Context, progress chan<- ProgressUpdate, w *models.Workout, step, total int, result *SubmitResult) error {
	// Dry run touches neither the destination nor durable state; outcomes
	// exist only in the in-memory result.
	if e.opts.DryRun {
		if _, err := os.Stat(w.ArtifactPath); w.ArtifactPath == "" || err != nil {
			e.logger.Warn("[dry-run] artifact missing, would fail", "workout", w.WorkoutID, "path", w.ArtifactPath)
			result.FailedPermanent++
			return nil
		}
		e.logger.Info("[dry-run] would upload", "workout", w.WorkoutID, "name", w.Name(), "external_id", w.ExternalID())
		result.WouldSubmit++
		return nil
	}

	if w.ArtifactPath == "" {
		return e.recordSubmitFailure(result, w, models.SubmitFailedPermanent, "no artifact recorded")
	}
	if _, err := os.Stat(w.ArtifactPath); err != nil {
		return e.recordSubmitFailure(result, w, models.SubmitFailedPermanent,
			fmt.Sprintf("%s: %s", shared.ErrArtifactMissing, w.ArtifactPath))
	}

	// Phase one: proactive duplicate check against the destination.
	if dupID, checked, err := e.findDuplicate(ctx, w); err != nil {
		apiErr, ok := services.AsAPIError(err)
		if ok && apiErr.Kind == services.KindAuthInvalid {
			return fmt.Errorf("%w: %s", shared.ErrAuthInvalid, apiErr.Message)
		}
		if !ok {
			return err // cancellation
		}
		// The duplicate check is an optimization; on any other failure
		// proceed to the upload attempt and let the destination's own
		// conflict detection be authoritative.
		e.logger.Warn("duplicate check failed, proceeding with upload", "workout", w.WorkoutID, "error", err)
	} else if checked && dupID != nil {
		e.logger.Info("likely duplicate found, skipping upload", "workout", w.WorkoutID, "activity", *dupID)
		e.sendProgress(progress, skippedUpdate(step, total, w.WorkoutID))
		if _, err := e.store.UpdateSubmitState(w.WorkoutID, models.SkippedDuplicate,
			fmt.Sprintf("matches existing activity %d", *dupID), dupID); err != nil {
			return err
		}
		result.Skipped++
		return nil
	}

	// Phase two: the create call, with the destination's conflict response
	// as the authoritative fallback.
	var handle *services.UploadStatus
	err := e.destCall(ctx, progress, w.WorkoutID, "upload", func(ctx context.Context) error {
		var err error
		handle, err = e.dest.UploadArtifact(ctx, services.UploadRequest{
			FilePath:     w.ArtifactPath,
			DataType:     "tcx",
			Name:         w.Name(),
			Description:  uploadDescription(w),
			ActivityType: w.MappedType,
			ExternalID:   w.ExternalID(),
		})
		return err
	})
	if err != nil {
		return e.classifySubmitError(result, w, err)
	}

	return e.resolveUpload(ctx, progress, w, handle, step, total, result)
}

// resolveUpload polls the import handle to completion with exponential
// spacing and a capped deadline.
func (e *MigrationEngine) resolveUpload(ctx context.Context, progress chan<- ProgressUpdate, w *models.Workout, handle *services.UploadStatus, step, total int, result *SubmitResult) error {
	deadline := time.Now().Add(e.opts.PollTimeout)
	interval := 3 * time.Second

	for handle.Processing() {
		if time.Now().After(deadline) {
			// The import may yet complete server-side; the external id lets
			// the destination reject a re-submission, so retrying is safe.
			return e.recordSubmitFailure(result, w, models.SubmitFailedRetryable,
				fmt.Sprintf("upload %d still processing after %s", handle.ID, e.opts.PollTimeout))
		}

		if err := e.sleep(ctx, interval); err != nil {
			return err
		}
		if interval < 30*time.Second {
			interval *= 2
		}

		uploadID := handle.ID
		err := e.destCall(ctx, progress, w.WorkoutID, "poll_upload", func(ctx context.Context) error {
			var err error
			handle, err = e.dest.PollUpload(ctx, uploadID)
			return err
		})
		if err != nil {
			return e.classifySubmitError(result, w, err)
		}
	}

	switch {
	case handle.Complete():
		e.logger.Info("upload complete", "workout", w.WorkoutID, "activity", *handle.ActivityID)
		e.sendProgress(progress, submittedUpdate(step, total, w.WorkoutID, *handle.ActivityID))
		if _, err := e.store.UpdateSubmitState(w.WorkoutID, models.Submitted, "", handle.ActivityID); err != nil {
			return err
		}
		result.Submitted++
		return nil
	case handle.Duplicate():
		e.logger.Info("destination reported duplicate", "workout", w.WorkoutID, "error", handle.Error)
		e.sendProgress(progress, skippedUpdate(step, total, w.WorkoutID))
		if _, err := e.store.UpdateSubmitState(w.WorkoutID, models.SkippedDuplicate, handle.Error, nil); err != nil {
			return err
		}
		result.Skipped++
		return nil
	case handle.Error != "":
		return e.recordSubmitFailure(result, w, models.SubmitFailedPermanent,
			fmt.Sprintf("destination rejected workout %d (%s): %s", w.WorkoutID, w.ArtifactPath, handle.Error))
	default:
		// Accepted but produced nothing processable.
		return e.recordSubmitFailure(result, w, models.SubmitFailedPermanent,
			fmt.Sprintf("upload for workout %d (%s) resolved to an unknown state", w.WorkoutID, w.ArtifactPath))
	}
}

// findDuplicate queries the destination for activities near the workout's
// timestamp and compares duration and distance within the configured
// tolerances. Returns the matched activity id, and whether a check ran at
// all (records without a usable timestamp skip it).
func (e *MigrationEngine) findDuplicate(ctx context.Context, w *models.Workout) (*int64, bool, error) {
	if w.WorkoutDate.IsZero() {
		return nil, false, nil
	}

	var activities []services.RemoteActivity
	err := e.destCall(ctx, nil, w.WorkoutID, "list_activities", func(ctx context.Context) error {
		var err error
		activities, err = e.dest.ListActivities(ctx, w.WorkoutDate.Add(-e.opts.DupWindow), w.WorkoutDate.Add(e.opts.DupWindow))
		return err
	})
	if err != nil {
		return nil, true, err
	}

	for _, a := range activities {
		durationDiff := math.Abs(float64(a.ElapsedTime) - w.DurationSec)
		distanceDiff := math.Abs(a.Distance - w.DistanceM)
		if durationDiff < e.opts.DupDurationTol && distanceDiff < e.opts.DupDistanceTol {
			id := a.ID
			e.logger.Info("duplicate candidate",
				"workout", w.WorkoutID, "activity", a.ID,
				"duration_diff", durationDiff, "distance_diff", distanceDiff)
			return &id, true, nil
		}
	}

	return nil, true, nil
}

// destCall wraps every destination API call with the rate budget and the
// audit log. On a rate-limit response it trips the cooldown, waits it out,
// and retries the identical operation — the duplicate query, the create, and
// the poll all pass through here, so all three get the same treatment.
func (e *MigrationEngine) destCall(ctx context.Context, progress chan<- ProgressUpdate, workoutID int64, endpoint string, fn func(context.Context) error) error {
	for {
		if err := e.budget.Wait(ctx); err != nil {
			return err
		}

		start := time.Now()
		err := fn(ctx)
		e.budget.RecordCall()

		entry := repositories.AuditEntry{
			WorkoutID: workoutID,
			Endpoint:  endpoint,
			Outcome:   "ok",
			Duration:  time.Since(start),
		}
		apiErr, isAPIErr := services.AsAPIError(err)
		if isAPIErr {
			entry.Outcome = apiErr.Kind.String()
			entry.StatusCode = apiErr.StatusCode
			entry.RetryAfter = apiErr.RetryAfter
		} else if err != nil {
			entry.Outcome = "error"
		}
		if e.audit != nil {
			if auditErr := e.audit.Record(entry); auditErr != nil {
				e.logger.Warn("failed to record audit entry", "error", auditErr)
			}
		}

		if isAPIErr && apiErr.Kind == services.KindRateLimited {
			d := e.budget.TripCooldown(apiErr.RetryAfter)
			e.logger.Warn("destination rate limit exceeded, cooling down", "endpoint", endpoint, "cooldown", d)
			e.sendProgress(progress, cooldownUpdate(d))
			continue
		}

		return err
	}
}

// classifySubmitError translates an API error from the create or poll call
// into a persisted per-record outcome, or an abort for PermanentGlobal
// conditions.
func (e *MigrationEngine) classifySubmitError(result *SubmitResult, w *models.Workout, err error) error {
	apiErr, ok := services.AsAPIError(err)
	if !ok {
		return err // cancellation or store failure
	}

	switch apiErr.Kind {
	case services.KindAuthInvalid:
		return fmt.Errorf("%w: %s", shared.ErrAuthInvalid, apiErr.Message)
	case services.KindDuplicate:
		if _, err := e.store.UpdateSubmitState(w.WorkoutID, models.SkippedDuplicate, apiErr.Message, nil); err != nil {
			return err
		}
		result.Skipped++
		return nil
	case services.KindTransient, services.KindRateLimited:
		return e.recordSubmitFailure(result, w, models.SubmitFailedRetryable, apiErr.Message)
	default:
		return e.recordSubmitFailure(result, w, models.SubmitFailedPermanent,
			fmt.Sprintf("workout %d (%s): %s", w.WorkoutID, w.ArtifactPath, apiErr.Message))
	}
}

func (e *MigrationEngine) recordSubmitFailure(result *SubmitResult, w *models.Workout, state models.SubmitState, reason string) error {
	e.logger.Error("submit failed", "workout", w.WorkoutID, "state", state, "reason", reason)
	if _, err := e.store.UpdateSubmitState(w.WorkoutID, state, reason, nil); err != nil {
		return err
	}
	if state == models.SubmitFailedPermanent {
		result.FailedPermanent++
	} else {
		result.FailedRetryable++
	}
	return nil
}

func uploadDescription(w *models.Workout) string {
	if w.Notes == "" {
		return "Imported from MapMyRun."
	}
	return fmt.Sprintf("Imported from MapMyRun.\nOriginal Notes: %s", w.Notes)
}
