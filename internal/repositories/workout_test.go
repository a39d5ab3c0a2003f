package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/desertthunder/wtx/internal/models"
	"github.com/desertthunder/wtx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func seedWorkouts(t *testing.T, repo *WorkoutRepository, ids ...int64) {
	t.Helper()

	workouts := make([]*models.Workout, 0, len(ids))
	for _, id := range ids {
		workouts = append(workouts, &models.Workout{
			WorkoutID:    id,
			ActivityType: "Run",
			WorkoutDate:  time.Date(2020, 6, 1, 8, 0, 0, 0, time.UTC),
		})
	}
	if _, err := repo.UpsertInventory(workouts); err != nil {
		t.Fatalf("failed to seed workouts: %v", err)
	}
}

// advanceToValid moves a workout through fetch and validation.
func advanceToValid(t *testing.T, repo *WorkoutRepository, id int64) {
	t.Helper()

	if ok, err := repo.UpdateFetchState(id, models.FetchSucceeded, "/tmp/w.tcx"); err != nil || !ok {
		t.Fatalf("failed to mark fetched: ok=%v err=%v", ok, err)
	}
	if ok, err := repo.UpdateValidation(id, models.Valid, "", "run", 1800, 5000); err != nil || !ok {
		t.Fatalf("failed to mark valid: ok=%v err=%v", ok, err)
	}
}

func TestWorkoutRepository(t *testing.T) {
	t.Run("UpsertInventoryIdempotent", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 100, 101, 102)

		inserted, err := repo.UpsertInventory([]*models.Workout{
			{WorkoutID: 101, ActivityType: "Run"},
			{WorkoutID: 103, ActivityType: "Walk"},
		})
		if err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}
		if inserted != 1 {
			t.Errorf("expected 1 new record, got %d", inserted)
		}

		w, err := repo.Get(101)
		if err != nil {
			t.Fatalf("failed to get workout: %v", err)
		}
		if w.FetchState != models.FetchNotStarted {
			t.Errorf("existing record should be untouched, got fetch state %s", w.FetchState)
		}
	})

	t.Run("UpsertInventoryRejectsInvalidID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		if _, err := repo.UpsertInventory([]*models.Workout{{WorkoutID: 0}}); err == nil {
			t.Error("expected error for non-positive workout id")
		}
	})

	t.Run("NextPendingOrderAndFilter", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 30, 10, 20)

		if ok, err := repo.UpdateFetchState(20, models.FetchSucceeded, "/tmp/20.tcx"); err != nil || !ok {
			t.Fatalf("failed to mark fetched: ok=%v err=%v", ok, err)
		}

		pending, err := repo.NextPending(models.StepFetch, 0)
		if err != nil {
			t.Fatalf("failed to query pending: %v", err)
		}
		if len(pending) != 2 {
			t.Fatalf("expected 2 pending workouts, got %d", len(pending))
		}
		if pending[0].WorkoutID != 10 || pending[1].WorkoutID != 30 {
			t.Errorf("expected ascending order [10 30], got [%d %d]", pending[0].WorkoutID, pending[1].WorkoutID)
		}

		limited, err := repo.NextPending(models.StepFetch, 1)
		if err != nil {
			t.Fatalf("failed to query limited pending: %v", err)
		}
		if len(limited) != 1 || limited[0].WorkoutID != 10 {
			t.Errorf("expected [10] with limit 1, got %v", limited)
		}
	})

	t.Run("NextPendingValidateRequiresFetch", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 1, 2)
		if ok, err := repo.UpdateFetchState(1, models.FetchSucceeded, "/tmp/1.tcx"); err != nil || !ok {
			t.Fatalf("failed to mark fetched: ok=%v err=%v", ok, err)
		}

		pending, err := repo.NextPending(models.StepValidate, 0)
		if err != nil {
			t.Fatalf("failed to query pending: %v", err)
		}
		if len(pending) != 1 || pending[0].WorkoutID != 1 {
			t.Errorf("only the fetched workout should be validatable, got %v", pending)
		}
	})

	t.Run("NextPendingSubmitIncludesRetryable", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 1, 2, 3)
		advanceToValid(t, repo, 1)
		advanceToValid(t, repo, 2)
		advanceToValid(t, repo, 3)

		id := int64(555)
		if ok, err := repo.UpdateSubmitState(1, models.Submitted, "", &id); err != nil || !ok {
			t.Fatalf("failed to submit: ok=%v err=%v", ok, err)
		}
		if ok, err := repo.UpdateSubmitState(2, models.SubmitFailedRetryable, "timeout", nil); err != nil || !ok {
			t.Fatalf("failed to mark retryable: ok=%v err=%v", ok, err)
		}

		pending, err := repo.NextPending(models.StepSubmit, 0)
		if err != nil {
			t.Fatalf("failed to query pending: %v", err)
		}
		if len(pending) != 2 {
			t.Fatalf("expected retryable and fresh records, got %d", len(pending))
		}
		if pending[0].WorkoutID != 2 || pending[1].WorkoutID != 3 {
			t.Errorf("expected [2 3], got [%d %d]", pending[0].WorkoutID, pending[1].WorkoutID)
		}
	})

	t.Run("TerminalStatesAreWriteOnce", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 1)
		advanceToValid(t, repo, 1)

		id := int64(999)
		if ok, err := repo.UpdateSubmitState(1, models.Submitted, "", &id); err != nil || !ok {
			t.Fatalf("first submit write failed: ok=%v err=%v", ok, err)
		}

		ok, err := repo.UpdateSubmitState(1, models.SubmitFailedPermanent, "late write", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("terminal submit state should not be overwritable")
		}

		w, err := repo.Get(1)
		if err != nil {
			t.Fatalf("failed to get workout: %v", err)
		}
		if w.SubmitState != models.Submitted {
			t.Errorf("expected submitted, got %s", w.SubmitState)
		}
		if w.StravaActivityID == nil || *w.StravaActivityID != 999 {
			t.Errorf("expected activity id 999, got %v", w.StravaActivityID)
		}
	})

	t.Run("ValidationRequiresFetchSucceeded", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 1)

		ok, err := repo.UpdateValidation(1, models.Valid, "", "run", 100, 200)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("validation should not apply before fetch succeeds")
		}
	})

	t.Run("SubmitRequiresValid", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 1)
		if ok, err := repo.UpdateFetchState(1, models.FetchSucceeded, "/tmp/1.tcx"); err != nil || !ok {
			t.Fatalf("failed to mark fetched: ok=%v err=%v", ok, err)
		}
		if ok, err := repo.UpdateValidation(1, models.Invalid, models.ReasonEmpty, "run", 0, 0); err != nil || !ok {
			t.Fatalf("failed to mark invalid: ok=%v err=%v", ok, err)
		}

		ok, err := repo.UpdateSubmitState(1, models.Submitted, "", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("invalid workout should never accept a submit state")
		}
	})

	t.Run("Summary", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()
		repo := NewWorkoutRepository(db)

		seedWorkouts(t, repo, 1, 2, 3)
		advanceToValid(t, repo, 1)
		id := int64(42)
		if ok, err := repo.UpdateSubmitState(1, models.Submitted, "", &id); err != nil || !ok {
			t.Fatalf("failed to submit: ok=%v err=%v", ok, err)
		}

		summary, err := repo.Summary()
		if err != nil {
			t.Fatalf("failed to summarize: %v", err)
		}

		if summary.Total != 3 {
			t.Errorf("expected 3 workouts, got %d", summary.Total)
		}
		if summary.Fetch[models.FetchSucceeded] != 1 {
			t.Errorf("expected 1 fetched, got %d", summary.Fetch[models.FetchSucceeded])
		}
		if summary.Fetch[models.FetchNotStarted] != 2 {
			t.Errorf("expected 2 not started, got %d", summary.Fetch[models.FetchNotStarted])
		}
		if summary.Submit[models.Submitted] != 1 {
			t.Errorf("expected 1 submitted, got %d", summary.Submit[models.Submitted])
		}
	})

	t.Run("AuditRecord", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		audit := NewAuditRepository(db)
		err := audit.Record(AuditEntry{
			WorkoutID:  7,
			Endpoint:   "upload",
			StatusCode: 201,
			Outcome:    "ok",
			Duration:   125 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("failed to record audit entry: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM destination_calls WHERE workout_id = 7").Scan(&count); err != nil {
			t.Fatalf("failed to count audit rows: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 audit row, got %d", count)
		}
	})
}
