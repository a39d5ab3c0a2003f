package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/wtx/internal/models"
)

// WorkoutRepository implements the durable record store for migration state.
type WorkoutRepository struct {
	db *sql.DB
}

// NewWorkoutRepository creates a new WorkoutRepository with the given database connection
func NewWorkoutRepository(db *sql.DB) *WorkoutRepository {
	return &WorkoutRepository{db: db}
}

const workoutColumns = `workout_id, activity_type, mapped_type, activity_name, notes, workout_date,
	fetch_state, validation_state, invalid_reason, submit_state, submit_reason,
	artifact_path, duration_sec, distance_m, strava_activity_id, created_at, updated_at`

// UpsertInventory inserts workouts that are not yet known to the store and
// leaves existing rows untouched, so re-running inventory population against
// an already-populated store is idempotent.
//
// Returns the number of newly inserted records.
func (r *WorkoutRepository) UpsertInventory(workouts []*models.Workout) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO workouts (workout_id, activity_type, activity_name, notes, workout_date)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, w := range workouts {
		if err := w.Validate(); err != nil {
			return inserted, fmt.Errorf("validation failed for workout %d: %w", w.WorkoutID, err)
		}

		var date any
		if !w.WorkoutDate.IsZero() {
			date = w.WorkoutDate
		}

		res, err := stmt.Exec(w.WorkoutID, w.ActivityType, w.ActivityName, w.Notes, date)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert workout %d: %w", w.WorkoutID, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get affected rows: %w", err)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit inventory: %w", err)
	}

	return inserted, nil
}

// Get retrieves a workout by its source identifier.
func (r *WorkoutRepository) Get(workoutID int64) (*models.Workout, error) {
	query := fmt.Sprintf("SELECT %s FROM workouts WHERE workout_id = ?", workoutColumns)
	return r.scanOne(r.db.QueryRow(query, workoutID))
}

// NextPending returns up to limit workouts eligible for the given step,
// ordered by ascending workout id for deterministic, reproducible resumption.
//
// Records in failed_retryable are re-selected; records in terminal states are
// never returned, which is what makes re-running a phase a no-op for
// completed work.
func (r *WorkoutRepository) NextPending(step models.Step, limit int) ([]*models.Workout, error) {
	var where string
	switch step {
	case models.StepFetch:
		where = "fetch_state IN ('not_started', 'in_progress', 'failed_retryable')"
	case models.StepValidate:
		where = "fetch_state = 'succeeded' AND validation_state = 'not_validated'"
	case models.StepSubmit:
		where = "validation_state = 'valid' AND submit_state IN ('not_submitted', 'failed_retryable')"
	default:
		return nil, fmt.Errorf("unknown step: %d", step)
	}

	query := fmt.Sprintf("SELECT %s FROM workouts WHERE %s ORDER BY workout_id ASC", workoutColumns, where)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending workouts: %w", err)
	}
	defer rows.Close()

	var workouts []*models.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending workouts: %w", err)
	}

	return workouts, nil
}

// UpdateFetchState records a fetch outcome. The artifact path is persisted
// together with the succeeded state in the same statement.
//
// Returns false without error when the record is already in a terminal fetch
// state, making repeated processing a no-op.
func (r *WorkoutRepository) UpdateFetchState(workoutID int64, state models.FetchState, artifactPath string) (bool, error) {
	query := `
		UPDATE workouts
		SET fetch_state = ?, artifact_path = ?, updated_at = ?
		WHERE workout_id = ? AND fetch_state IN ('not_started', 'in_progress', 'failed_retryable')
	`

	res, err := r.db.Exec(query, string(state), artifactPath, time.Now(), workoutID)
	if err != nil {
		return false, fmt.Errorf("failed to update fetch state for workout %d: %w", workoutID, err)
	}

	return applied(res)
}

// UpdateValidation records a validation outcome together with the derived
// duration/distance measures and the normalized activity type.
//
// The WHERE clause enforces that validation is only ever recorded for a
// successfully fetched, not-yet-validated record.
func (r *WorkoutRepository) UpdateValidation(workoutID int64, state models.ValidationState, reason, mappedType string, durationSec, distanceM float64) (bool, error) {
	query := `
		UPDATE workouts
		SET validation_state = ?, invalid_reason = ?, mapped_type = ?, duration_sec = ?, distance_m = ?, updated_at = ?
		WHERE workout_id = ? AND fetch_state = 'succeeded' AND validation_state = 'not_validated'
	`

	res, err := r.db.Exec(query, string(state), reason, mappedType, durationSec, distanceM, time.Now(), workoutID)
	if err != nil {
		return false, fmt.Errorf("failed to update validation for workout %d: %w", workoutID, err)
	}

	return applied(res)
}

// UpdateSubmitState records a submission outcome and, when known, the remote
// activity id assigned by Strava.
//
// The WHERE clause enforces that only validated records move, and that
// terminal submit states are write-once.
func (r *WorkoutRepository) UpdateSubmitState(workoutID int64, state models.SubmitState, reason string, stravaActivityID *int64) (bool, error) {
	query := `
		UPDATE workouts
		SET submit_state = ?, submit_reason = ?, strava_activity_id = COALESCE(?, strava_activity_id), updated_at = ?
		WHERE workout_id = ? AND validation_state = 'valid' AND submit_state IN ('not_submitted', 'failed_retryable')
	`

	res, err := r.db.Exec(query, string(state), reason, stravaActivityID, time.Now(), workoutID)
	if err != nil {
		return false, fmt.Errorf("failed to update submit state for workout %d: %w", workoutID, err)
	}

	return applied(res)
}

// Summary returns record counts grouped by state for every phase.
func (r *WorkoutRepository) Summary() (*models.Summary, error) {
	summary := models.NewSummary()

	if err := r.db.QueryRow("SELECT COUNT(*) FROM workouts").Scan(&summary.Total); err != nil {
		return nil, fmt.Errorf("failed to count workouts: %w", err)
	}

	rows, err := r.db.Query("SELECT fetch_state, COUNT(*) FROM workouts GROUP BY fetch_state")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize fetch states: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan fetch summary: %w", err)
		}
		summary.Fetch[models.FetchState(state)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fetch summary: %w", err)
	}

	vrows, err := r.db.Query("SELECT validation_state, COUNT(*) FROM workouts GROUP BY validation_state")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize validation states: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var state string
		var count int
		if err := vrows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan validation summary: %w", err)
		}
		summary.Validation[models.ValidationState(state)] = count
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate validation summary: %w", err)
	}

	srows, err := r.db.Query("SELECT submit_state, COUNT(*) FROM workouts GROUP BY submit_state")
	if err != nil {
		return nil, fmt.Errorf("failed to summarize submit states: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var state string
		var count int
		if err := srows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("failed to scan submit summary: %w", err)
		}
		summary.Submit[models.SubmitState(state)] = count
	}
	if err := srows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submit summary: %w", err)
	}

	return summary, nil
}

// List returns every workout ordered by workout id.
func (r *WorkoutRepository) List() ([]*models.Workout, error) {
	query := fmt.Sprintf("SELECT %s FROM workouts ORDER BY workout_id ASC", workoutColumns)
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	defer rows.Close()

	var workouts []*models.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workouts: %w", err)
	}

	return workouts, nil
}

func applied(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *WorkoutRepository) scanOne(row *sql.Row) (*models.Workout, error) {
	w, err := scanWorkout(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workout not found")
	}
	return w, err
}

func scanWorkout(row scannable) (*models.Workout, error) {
	var w models.Workout
	var name sql.NullString
	var date sql.NullTime
	var remoteID sql.NullInt64
	var fetchState, validationState, submitState string

	err := row.Scan(
		&w.WorkoutID,
		&w.ActivityType,
		&w.MappedType,
		&name,
		&w.Notes,
		&date,
		&fetchState,
		&validationState,
		&w.InvalidReason,
		&submitState,
		&w.SubmitReason,
		&w.ArtifactPath,
		&w.DurationSec,
		&w.DistanceM,
		&remoteID,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan workout: %w", err)
	}

	if name.Valid {
		w.ActivityName = &name.String
	}
	if date.Valid {
		w.WorkoutDate = date.Time
	}
	if remoteID.Valid {
		w.StravaActivityID = &remoteID.Int64
	}
	w.FetchState = models.FetchState(fetchState)
	w.ValidationState = models.ValidationState(validationState)
	w.SubmitState = models.SubmitState(submitState)

	return &w, nil
}
